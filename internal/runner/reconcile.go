package runner

import "signal_trader/internal/models"

// Relation: как текущие позиции соотносятся с желаемым направлением.
type Relation int

const (
	RelationNone Relation = iota
	RelationSame
	RelationOpposite
)

func (r Relation) String() string {
	switch r {
	case RelationSame:
		return "same"
	case RelationOpposite:
		return "opposite"
	default:
		return "none"
	}
}

// Classify смотрит только позиции по instrument и с ненулевым объёмом.
// Встречная позиция важнее попутной: на хеджирующем счёте закрываем всё и входим заново.
func Classify(dir models.Direction, positions []models.Position, instrument string) Relation {
	buy := dir == models.DirectionBuy
	rel := RelationNone
	for _, p := range positions {
		if p.Instrument != instrument {
			continue
		}
		switch {
		case p.Long() && !buy, p.Short() && buy:
			return RelationOpposite
		case p.Long(), p.Short():
			rel = RelationSame
		}
	}
	return rel
}
