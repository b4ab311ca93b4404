// Package output записывает результаты в выходные файлы.
//
//   - writer.go — запись слитого бандла (mkdir -p, слияние с существующими объектами)
//   - merger.go — FileMerger: объединение нескольких выходных файлов в один
//   - naming.go — имена выходных файлов циклов
package output
