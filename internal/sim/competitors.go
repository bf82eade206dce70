package sim

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// CompetitorEntry is one fabricated competitor in a category scan
type CompetitorEntry struct {
	SellerID    string  `json:"seller_id"`
	Price       float64 `json:"price"`
	MarketShare float64 `json:"market_share"`
	AdPressure  float64 `json:"ad_pressure"`
}

// CompetitorScan is a fabricated snapshot of a category's competitive
// landscape. Simulated is always true: nothing here comes from real data.
type CompetitorScan struct {
	Category    string            `json:"category"`
	Competitors []CompetitorEntry `json:"competitors"`
	AvgPrice    float64           `json:"avg_price"`
	GeneratedAt time.Time         `json:"generated_at"`
	Simulated   bool              `json:"simulated"`
}

// Intel fabricates competitor metrics per category. It exists so the API
// surface has a placeholder until a real data source lands; every response
// is flagged simulated.
type Intel struct {
	logger *zap.Logger
	rng    *rand.Rand
}

// NewIntel creates a competitor intelligence simulator. Pass a fixed seed
// for reproducible output in tests.
func NewIntel(logger *zap.Logger, seed int64) *Intel {
	return &Intel{
		logger: logger.Named("intel"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// ScanCategory fabricates a competitor snapshot for a category
func (i *Intel) ScanCategory(category string) *CompetitorScan {
	n := 3 + i.rng.Intn(5)
	scan := &CompetitorScan{
		Category:    category,
		Competitors: make([]CompetitorEntry, 0, n),
		GeneratedAt: time.Now(),
		Simulated:   true,
	}

	var total float64
	remaining := 1.0
	for idx := 0; idx < n; idx++ {
		share := remaining * (0.2 + i.rng.Float64()*0.4)
		remaining -= share
		price := 50 + i.rng.Float64()*450
		total += price
		scan.Competitors = append(scan.Competitors, CompetitorEntry{
			SellerID:    fmt.Sprintf("SIM-%s-%03d", category, idx+1),
			Price:       round2(price),
			MarketShare: round2(share * 100),
			AdPressure:  round2(i.rng.Float64() * 10),
		})
	}
	scan.AvgPrice = round2(total / float64(n))

	i.logger.Debug("Fabricated competitor scan",
		zap.String("category", category),
		zap.Int("competitors", n))
	return scan
}
