// Package merge — контракт слияния результатов.
//
// Каждый артефакт (Artifact) имеет имя, путь в дереве выхода и значение
// объявленного вида. Значения одного вида и имени сливаются в одно:
//   - counter, statistics — поэлементная сумма
//   - histogram           — сумма по бинам, ошибки в квадратуре, сумма числа входов
//   - stream              — конкатенация записей в порядке бандлов
//   - прочие виды         — функция из Registry по виду; без функции остаётся первый
//
// Bundle — набор артефактов одного воркера или локального запуска.
package merge
