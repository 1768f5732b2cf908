package analyze

// Quality ranks how alive a group, or a whole playlist, looks.
type Quality int

const (
	QualityInvalid Quality = iota
	QualityDead
	QualityWeak
	QualityActive
)

func (q Quality) String() string {
	switch q {
	case QualityDead:
		return "DEAD"
	case QualityWeak:
		return "WEAK"
	case QualityActive:
		return "ACTIVE"
	default:
		return "INVALID"
	}
}

// qualityFor maps a group's playable count to its quality.
func qualityFor(passed int) Quality {
	switch {
	case passed >= 2:
		return QualityActive
	case passed == 1:
		return QualityWeak
	default:
		return QualityDead
	}
}
