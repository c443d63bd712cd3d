// Package risk содержит чистую эвристику оценки риска пользователей
// и пометки подозрительных сделок. Никакого I/O: входные данные
// собирает сервисный слой.
package risk

import "time"

const (
	// MinScore и MaxScore — границы итоговой оценки.
	MinScore = 0
	MaxScore = 100

	// HighRiskThreshold — оценка, после которой пользователь считается
	// высокорисковым при пометке сделок.
	HighRiskThreshold = 70

	day = 24 * time.Hour
)

// Input — входные данные оценки риска одного пользователя.
type Input struct {
	AccountAge      time.Duration
	VouchCount      int
	ResolvedReports int
	Banned          bool
	Verified        bool
}

// band — одна строка таблицы фактора: первый подошедший предикат
// определяет количество баллов. Диапазоны взаимоисключающие,
// порядок проверки фиксирован.
type band struct {
	matches func(Input) bool
	points  int
}

// factor — именованный фактор риска с упорядоченной таблицей диапазонов.
type factor struct {
	name  string
	bands []band
}

var factors = []factor{
	{
		name: "account_age",
		bands: []band{
			{func(in Input) bool { return in.AccountAge < 7*day }, 30},
			{func(in Input) bool { return in.AccountAge < 30*day }, 20},
			{func(in Input) bool { return in.AccountAge < 90*day }, 10},
		},
	},
	{
		name: "vouches",
		bands: []band{
			{func(in Input) bool { return in.VouchCount == 0 }, 20},
			{func(in Input) bool { return in.VouchCount < 5 }, 15},
			{func(in Input) bool { return in.VouchCount < 10 }, 10},
			{func(in Input) bool { return in.VouchCount < 20 }, 5},
		},
	},
	{
		name: "resolved_reports",
		bands: []band{
			{func(in Input) bool { return in.ResolvedReports > 5 }, 30},
			{func(in Input) bool { return in.ResolvedReports > 2 }, 20},
			{func(in Input) bool { return in.ResolvedReports > 0 }, 10},
		},
	},
	{
		// Бан аддитивен, не перекрывает остальные факторы: свежий
		// забаненный аккаунт без поручительств выходит за 100 до клампа.
		name: "ban",
		bands: []band{
			{func(in Input) bool { return in.Banned }, 50},
		},
	},
	{
		name: "verified",
		bands: []band{
			{func(in Input) bool { return in.Verified }, -10},
		},
	},
}

// Score вычисляет оценку риска пользователя в диапазоне [0, 100].
// Детерминированная чистая функция.
func Score(in Input) int {
	sum := 0
	for _, f := range factors {
		for _, b := range f.bands {
			if b.matches(in) {
				sum += b.points
				break
			}
		}
	}
	return clamp(sum, MinScore, MaxScore)
}

// Breakdown возвращает вклад каждого фактора до клампа. Используется
// модераторским API для объяснения оценки.
func Breakdown(in Input) map[string]int {
	out := make(map[string]int, len(factors))
	for _, f := range factors {
		for _, b := range f.bands {
			if b.matches(in) {
				out[f.name] = b.points
				break
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
