package domain

// Record — одна запись потока: имя поля → значение.
type Record map[string]any
