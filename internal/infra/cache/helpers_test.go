package cache

import (
	"time"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func engineConfig() rules.Config {
	return rules.DefaultConfig()
}
