package insight

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
)

var (
	// ErrNoPlatformsSelected means the request named no platforms at all.
	ErrNoPlatformsSelected = errors.New("no platforms selected")

	// ErrNoDataFound means every selected platform had an empty dataset.
	ErrNoDataFound = errors.New("no data found for the selected platforms")

	// ErrMalformedInsight means the model response could not be parsed
	// into the expected shape.
	ErrMalformedInsight = errors.New("malformed insight response")
)

// Analysis depths and their sampling temperatures. Higher depth asks for
// more exploratory output.
const (
	DepthBasic    = "Basic"
	DepthAdvanced = "Advanced"
)

func temperatureFor(depth string) float32 {
	switch depth {
	case DepthBasic:
		return 0.3
	case DepthAdvanced:
		return 0.6
	default:
		return 0.9
	}
}

// Selection is one platform dataset the user wants analyzed.
type Selection struct {
	Platform     string `json:"platform" validate:"required"`
	AnalysisType string `json:"analysisType"`
}

// Request is one analysis run over the user's fetched datasets.
type Request struct {
	Selections []Selection `json:"platforms" validate:"required,dive"`
	Depth      string      `json:"depth"`
	Industry   string      `json:"industry"`
	// Product names the product or business scope the analysis is about,
	// anything from a single SKU to a whole store.
	Product string `json:"product"`
	// CustomGoal overrides the per-selection goal table for every dataset.
	CustomGoal string    `json:"customGoal"`
	Since      time.Time `json:"-"`
}

// DatasetLoader reads one platform's stored dataset as raw JSON. Empty
// datasets come back as "".
type DatasetLoader interface {
	Load(userID uint, platform, analysisType string, since time.Time) (string, error)
}

// Aggregator turns stored platform datasets into one AI analysis.
type Aggregator struct {
	loader DatasetLoader
	chat   chatClient
}

func NewAggregator(loader DatasetLoader, chat chatClient) *Aggregator {
	return &Aggregator{loader: loader, chat: chat}
}

// Analyze loads every selected dataset, drops the empty ones, builds the
// combined prompt and runs the completion. Selections without data are
// skipped silently; only an entirely empty run is an error.
func (a *Aggregator) Analyze(ctx context.Context, userID uint, req Request) (*Insight, error) {
	if len(req.Selections) == 0 {
		return nil, ErrNoPlatformsSelected
	}

	prepared := make([]preparedSelection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		raw, err := a.loader.Load(userID, sel.Platform, sel.AnalysisType, req.Since)
		if err != nil {
			return nil, err
		}
		if emptyDataset(raw) {
			continue
		}
		prepared = append(prepared, preparedSelection{
			Platform:     sel.Platform,
			AnalysisType: sel.AnalysisType,
			Goal:         GoalFor(sel.Platform, sel.AnalysisType, req.CustomGoal),
			DatasetJSON:  raw,
		})
	}
	if len(prepared) == 0 {
		return nil, ErrNoDataFound
	}

	prompt := buildPrompt(prepared, req)
	return complete(ctx, a.chat, prompt, temperatureFor(req.Depth))
}

func emptyDataset(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "[]", "{}", "null":
		return true
	}
	return false
}

// repositoryLoader reads datasets from the keyed caches the fetch
// endpoints fill.
type repositoryLoader struct {
	datasets repository.DatasetRepository
}

// NewRepositoryLoader builds the production loader.
func NewRepositoryLoader(datasets repository.DatasetRepository) DatasetLoader {
	return &repositoryLoader{datasets: datasets}
}

func (l *repositoryLoader) Load(userID uint, platform, analysisType string, since time.Time) (string, error) {
	switch FamilyOf(platform) {
	case FamilyAds:
		records, err := l.datasets.ListAdRecords(userID, platform, since)
		if err != nil {
			return "", err
		}
		return joinPayloads(len(records), func(i int) string { return records[i].PayloadJSON }), nil

	case FamilyAnalytics:
		rows, err := l.datasets.ListAnalyticsRows(userID, since)
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			return "", nil
		}
		raw, err := json.Marshal(projectAnalyticsRows(rows, analysisType))
		if err != nil {
			return "", err
		}
		return string(raw), nil

	case FamilyPayments:
		txns, err := l.datasets.ListTransactions(userID, platform, since)
		if err != nil {
			return "", err
		}
		return joinPayloads(len(txns), func(i int) string { return txns[i].PayloadJSON }), nil

	case FamilyCommerce:
		bundle, err := l.datasets.GetBundle(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", nil
			}
			return "", err
		}
		collection := analysisType
		if collection == "" {
			collection = models.BundleOrders
		}
		return bundle.Collection(collection), nil
	}
	return "", nil
}

// projectAnalyticsRows narrows analytics rows to the fields the analysis
// type reads. Unknown types keep the full rows.
func projectAnalyticsRows(rows []models.AnalyticsRow, analysisType string) any {
	switch analysisType {
	case "traffic":
		type view struct {
			Date            time.Time `json:"date"`
			FirstUserSource string    `json:"first_user_source"`
			SessionSource   string    `json:"session_source"`
			Medium          string    `json:"medium"`
			Country         string    `json:"country"`
			City            string    `json:"city"`
			ActiveUsers     int       `json:"active_users"`
			NewUsers        int       `json:"new_users"`
			Sessions        int       `json:"sessions"`
			BounceRate      float64   `json:"bounce_rate"`
		}
		out := make([]view, len(rows))
		for i, r := range rows {
			out[i] = view{
				Date:            r.Date,
				FirstUserSource: r.FirstUserSource,
				SessionSource:   r.SessionSource,
				Medium:          r.Medium,
				Country:         r.Country,
				City:            r.City,
				ActiveUsers:     r.ActiveUsers,
				NewUsers:        r.NewUsers,
				Sessions:        r.Sessions,
				BounceRate:      r.BounceRate,
			}
		}
		return out

	case "conversion":
		type view struct {
			Date                  time.Time `json:"date"`
			Sessions              int       `json:"sessions"`
			Transactions          int       `json:"transactions"`
			PurchaseRevenue       float64   `json:"purchase_revenue"`
			EcommercePurchases    int       `json:"ecommerce_purchases"`
			AverageRevenuePerUser float64   `json:"average_revenue_per_user"`
			BounceRate            float64   `json:"bounce_rate"`
		}
		out := make([]view, len(rows))
		for i, r := range rows {
			out[i] = view{
				Date:                  r.Date,
				Sessions:              r.Sessions,
				Transactions:          r.Transactions,
				PurchaseRevenue:       r.PurchaseRevenue,
				EcommercePurchases:    r.EcommercePurchases,
				AverageRevenuePerUser: r.AverageRevenuePerUser,
				BounceRate:            r.BounceRate,
			}
		}
		return out

	case "engagement":
		type view struct {
			Date            time.Time `json:"date"`
			SessionSource   string    `json:"session_source"`
			DeviceCategory  string    `json:"device_category"`
			Browser         string    `json:"browser"`
			ActiveUsers     int       `json:"active_users"`
			SessionDuration float64   `json:"session_duration"`
			EngagementRate  float64   `json:"engagement_rate"`
			BounceRate      float64   `json:"bounce_rate"`
		}
		out := make([]view, len(rows))
		for i, r := range rows {
			out[i] = view{
				Date:            r.Date,
				SessionSource:   r.SessionSource,
				DeviceCategory:  r.DeviceCategory,
				Browser:         r.Browser,
				ActiveUsers:     r.ActiveUsers,
				SessionDuration: r.SessionDuration,
				EngagementRate:  r.EngagementRate,
				BounceRate:      r.BounceRate,
			}
		}
		return out
	}
	return rows
}

// joinPayloads reassembles stored per-row JSON payloads into one array
// without re-decoding them.
func joinPayloads(n int, payload func(int) string) string {
	if n == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(payload(i))
	}
	b.WriteByte(']')
	return b.String()
}
