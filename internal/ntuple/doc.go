// Package ntuple — минимальный слой хранения потоков записей.
//
// Файл — это база bbolt с деревом пространств имён:
//   - вложенный bucket — пространство имён (директория)
//   - bucket с маркером потока — поток записей, ключи — big-endian индексы,
//     значения — записи в msgpack
//   - ключ со значением — произвольный объект (вид + байты)
//
// Структура:
//   - file.go   — открытие файла, обход дерева, объекты, потоки
//   - chain.go  — чтение потоков датасета как одной последовательности
//   - output.go — объявление выходных полей и накопление записей
package ntuple
