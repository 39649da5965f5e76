package tool

import (
	"fmt"
	"math/rand"
)

var adjectives = []string{
	"Bright",
	"Calm",
	"Clever",
	"Cool",
	"Fast",
	"Fresh",
	"Kind",
	"Neat",
	"Quiet",
	"Secret",
	"Smart",
	"Solid",
	"Swift",
	"Wise",
}

var birds = []string{
	"Crane",
	"Falcon",
	"Finch",
	"Heron",
	"Kestrel",
	"Magpie",
	"Osprey",
	"Owl",
	"Raven",
	"Sparrow",
	"Wren",
}

// NameGenerator returns a friendly default alias for a fresh install.
func NameGenerator() string {
	adjective := adjectives[rand.Intn(len(adjectives))]
	bird := birds[rand.Intn(len(birds))]
	return fmt.Sprintf("%s %s", adjective, bird)
}
