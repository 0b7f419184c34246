package scoring

import "fmt"

// Category is the ordinal freshness class derived from a clamped score.
type Category int

const (
	Rotten Category = iota
	MidRotten
	Fresh
)

// Class boundaries: below RottenBelow is Rotten, up to and including
// FreshAbove is Mid-Rotten, anything higher is Fresh.
const (
	RottenBelow = 40.0
	FreshAbove  = 60.0
)

// Classify maps a clamped score to its category.
func Classify(score float64) Category {
	switch {
	case score < RottenBelow:
		return Rotten
	case score <= FreshAbove:
		return MidRotten
	default:
		return Fresh
	}
}

func (c Category) String() string {
	switch c {
	case Rotten:
		return "Rotten"
	case MidRotten:
		return "Mid-Rotten"
	case Fresh:
		return "Fresh"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Color is the display colour front-ends use for the category.
func (c Category) Color() string {
	switch c {
	case Rotten:
		return "#ff4d4d"
	case MidRotten:
		return "#ffa500"
	default:
		return "#00f260"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// FormatScore renders a score the way every front-end displays it.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}
