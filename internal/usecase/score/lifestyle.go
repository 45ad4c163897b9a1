package score

import "vitality-score/internal/domain"

// lisSegment линейно интерполирует смещение возраста между двумя значениями LIS.
type lisSegment struct {
	fromScore, toScore   float64
	fromOffset, toOffset float64
}

// Положительное смещение означает возраст старше хронологического.
var lisSegments = []lisSegment{
	{60, 70, 2.5, 1.5},
	{70, 80, 1.5, 0.8},
	{80, 90, 0.8, 0.2},
	{90, 110, 0.2, -0.2},
	{110, 120, -0.2, -0.8},
	{120, 130, -0.8, -1.5},
	{130, 140, -1.5, -2.5},
}

const (
	lisFloor     = 60.0
	lisCeiling   = 140.0
	maxAgeOffset = 2.5
	minAgeOffset = -2.5
)

// LifestyleAgeOffset переводит LIS в годы, добавляемые к хронологическому возрасту.
// Значения вне [60, 140] ограничиваются ±2.5.
func LifestyleAgeOffset(lis float64) float64 {
	if lis < lisFloor {
		return maxAgeOffset
	}
	if lis > lisCeiling {
		return minAgeOffset
	}
	for _, seg := range lisSegments {
		if lis <= seg.toScore {
			frac := (lis - seg.fromScore) / (seg.toScore - seg.fromScore)
			return seg.fromOffset + frac*(seg.toOffset-seg.fromOffset)
		}
	}
	return minAgeOffset
}

// LifestyleAgeFromScore возвращает возраст образа жизни.
// Возраст считается от уже округлённого смещения, чтобы разница с хронологическим
// возрастом совпадала с Offset.
func LifestyleAgeFromScore(chronologicalAge, lis float64) domain.LifestyleAgeResult {
	offset := round1(LifestyleAgeOffset(lis))
	return domain.LifestyleAgeResult{
		ChronologicalAge: chronologicalAge,
		Score:            lis,
		Offset:           offset,
		LifestyleAge:     round1(chronologicalAge + offset),
	}
}
