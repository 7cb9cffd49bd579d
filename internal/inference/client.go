// Package inference wraps the external natural-language inference service.
// Every call is a single request/response against one endpoint; callers treat
// failures and malformed responses as "no result" rather than hard errors.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/navid-fn/pulse/internal/model"
)

const (
	inferPath      = "/v1/infer"
	requestTimeout = 30 * time.Second
	maxBodySize    = 1 << 20 // 1MB
)

// Client calls the inference service over HTTP, rate-limited so bursty
// batch workflows cannot overwhelm it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client against baseURL. requestsPerSecond caps the
// outbound rate; zero disables limiting.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *Client {
	if timeout <= 0 {
		timeout = requestTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

type inferRequest struct {
	Task   string `json:"task"`
	Prompt string `json:"prompt"`
}

// infer posts one request and decodes the response into out.
func (c *Client) infer(ctx context.Context, task, prompt string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(inferRequest{Task: task, Prompt: prompt})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+inferPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// ExtractionResult is the structured read of one email or news item.
type ExtractionResult struct {
	HasSignal        bool     `json:"has_signal"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Confidence       float64  `json:"confidence"`
	Severity         string   `json:"severity"`
	Sentiment        string   `json:"sentiment"`
	RelatedMarkets   []string `json:"related_markets"`
	PriceImpact      float64  `json:"price_impact"`
	TimeHorizon      string   `json:"time_horizon"`
	ActionSuggestion string   `json:"action_suggestion"`
}

// ExtractSignal asks the service to read one content item for an actionable
// signal. A nil result with nil error means "no signal".
func (c *Client) ExtractSignal(ctx context.Context, item model.BatchItem) (*ExtractionResult, error) {
	prompt := fmt.Sprintf(
		"Extract an actionable trading signal from this %s.\nTitle: %s\nContent: %s",
		item.Kind, item.Title, item.Content,
	)

	var result ExtractionResult
	if err := c.infer(ctx, "extract_signal", prompt, &result); err != nil {
		return nil, err
	}
	if !result.HasSignal {
		return nil, nil
	}
	return &result, nil
}

// BehaviorClassification is the service's read of a trader's recent activity.
type BehaviorClassification struct {
	RiskLevel  string  `json:"risk_level"` // low, medium, high
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// HighRisk reports whether the classification warrants a behavior signal.
func (b BehaviorClassification) HighRisk() bool {
	return b.RiskLevel == "high" && b.Confidence > 0.7
}

// ClassifyBehavior summarizes a trader's recent trades and asks the service
// to classify the behavior pattern.
func (c *Client) ClassifyBehavior(ctx context.Context, userID string, trades []model.Trade) (BehaviorClassification, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Classify the trading behavior of trader %s based on %d recent trades:\n", userID, len(trades))
	for _, t := range trades {
		fmt.Fprintf(&sb, "- %s %s %.4f @ %.4f (pnl %.2f)\n", t.Side, t.Symbol, t.Amount, t.Price, t.PnL)
	}

	var result BehaviorClassification
	if err := c.infer(ctx, "classify_behavior", sb.String(), &result); err != nil {
		return BehaviorClassification{}, err
	}
	return result, nil
}

// SentimentScore is a directional sentiment read of one content item.
type SentimentScore struct {
	Score      float64 `json:"score"`      // -1 (bearish) .. 1 (bullish)
	Confidence float64 `json:"confidence"` // 0 .. 1
}

// ScoreSentiment reads one item's content for sentiment.
func (c *Client) ScoreSentiment(ctx context.Context, content string) (SentimentScore, error) {
	var result SentimentScore
	err := c.infer(ctx, "score_sentiment", "Score the market sentiment of this content between -1 and 1:\n"+content, &result)
	if err != nil {
		return SentimentScore{}, err
	}
	return result, nil
}

// ExplainCorrelation asks for a short natural-language explanation of a
// non-weak correlation between two markets.
func (c *Client) ExplainCorrelation(ctx context.Context, marketA, marketB string, correlation float64, sampleSize int) (string, error) {
	prompt := fmt.Sprintf(
		"Explain in two sentences why %s and %s show a correlation of %.3f over %d samples.",
		marketA, marketB, correlation, sampleSize,
	)

	var result struct {
		Explanation string `json:"explanation"`
	}
	if err := c.infer(ctx, "explain_correlation", prompt, &result); err != nil {
		return "", err
	}
	return result.Explanation, nil
}

// InsightDraft is a generated personalized narrative for one user.
type InsightDraft struct {
	Title     string `json:"title"`
	Narrative string `json:"narrative"`
	Priority  string `json:"priority"` // low, normal, high, urgent
}

// GenerateInsight asks for a personalized daily narrative from a user's
// portfolio summary.
func (c *Client) GenerateInsight(ctx context.Context, summary model.PortfolioSummary) (InsightDraft, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a daily portfolio insight for user %s.\nOpen positions:\n", summary.UserID)
	for _, p := range summary.Positions {
		fmt.Fprintf(&sb, "- %s %s size %.4f entry %.4f\n", p.Side, p.Symbol, p.Size, p.EntryPrice)
	}
	sb.WriteString("Relevant recent signals:\n")
	for _, s := range summary.RecentSignals {
		fmt.Fprintf(&sb, "- [%s/%s] %s\n", s.Type, s.Severity, s.Title)
	}

	var result InsightDraft
	if err := c.infer(ctx, "generate_insight", sb.String(), &result); err != nil {
		return InsightDraft{}, err
	}
	return result, nil
}
