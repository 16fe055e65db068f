package dna

import "github.com/ternarybob/chameleon/internal/models"

// DefaultProfile returns the fixed baseline DNA used for a target's first
// snapshot (version 1.0.0). The shape mimics a current desktop Chrome.
func DefaultProfile() *models.DNA {
	return &models.DNA{
		Identity: models.IdentityGene{
			UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			Viewport:            "1920x1080",
			Timezone:            "America/New_York",
			Language:            "en-US",
			Platform:            "Win32",
			ColorDepth:          24,
			DeviceMemory:        8,
			HardwareConcurrency: 8,
		},
		Timing: models.TimingGene{
			ReadingSpeed:  "average",
			TypingSpeed:   "average",
			ClickPattern:  "natural",
			ScrollPattern: "smooth",
			DelayRange:    models.DelayRange{MinMs: 2000, MaxMs: 5000},
		},
		Network: models.NetworkGene{
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.9",
				"Accept-Encoding": "gzip, deflate, br",
				"Connection":      "keep-alive",
			},
			HeaderOrder: []string{
				"Host",
				"User-Agent",
				"Accept",
				"Accept-Language",
				"Accept-Encoding",
				"Connection",
			},
			TLSFingerprint: "chrome_126",
			HTTPVersion:    "2",
			AcceptEncoding: "gzip, deflate, br",
		},
		Interaction: models.InteractionGene{
			MouseMovement:   "bezier",
			ScrollSpeed:     "variable",
			ClickPrecision:  "high",
			ReadingStrategy: "scan_then_read",
			TabSwitching:    false,
		},
		Capabilities: models.CapabilitiesGene{
			JavaScript:   true,
			Cookies:      true,
			LocalStorage: true,
			CaptchaSolve: false,
			AltchaSolve:  false,
		},
		Temporal: models.TemporalGene{
			SessionDurationMin: 300,
			SessionDurationMax: 1800,
			TimeOfDayPolicy:    "business_hours",
			DayOfWeekPolicy:    "weekdays",
		},
	}
}
