package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"WarrenFinSaas/internal/mapper"
)

// ErrDisabled is returned when no AI endpoint is configured; callers treat
// it like any other AI failure and fall back to local detection.
var ErrDisabled = errors.New("ai mapper endpoint not configured")

// Client talks to the external AI structure/classification service. The
// service is best-effort: one request, no retries, and every failure mode
// (network, HTTP status, malformed body, missing fields) degrades to the
// local pipeline rather than surfacing an error state to the user.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClientFromEnv builds a client from AI_MAPPER_URL / AI_MAPPER_TIMEOUT_SECONDS.
// An empty URL yields a disabled client.
func NewClientFromEnv() *Client {
	timeout := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("AI_MAPPER_TIMEOUT_SECONDS")); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("AI_MAPPER_URL")), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

type analyzeRequest struct {
	RawData  [][]string `json:"rawData"`
	FileName string     `json:"fileName"`
}

// Wire DTOs. The upstream service is loosely typed; everything is validated
// and normalized here so the engine can assume well-formed values.
type structureDTO struct {
	PeriodColumns []mapper.PeriodColumn `json:"periodColumns"`
	Currency      string                `json:"currency"`
	StatementType string                `json:"statementType"`
	AccountCols   struct {
		NameColumn int `json:"nameColumn"`
	} `json:"accountColumns"`
	DataStartRow int `json:"dataStartRow"`
}

type analyzeResponse struct {
	Structure       structureDTO            `json:"structure"`
	Classifications []mapper.Classification `json:"classifications"`
}

// AnalysisResult is the validated AI response.
type AnalysisResult struct {
	Structure       mapper.SheetStructure
	Classifications map[string]mapper.Classification // keyed by lower-cased name
}

// AnalyzeStructure sends a bounded row sample and the file name to the AI
// service and returns the validated structure and classification map.
func (c *Client) AnalyzeStructure(ctx context.Context, rawData [][]string, fileName string) (*AnalysisResult, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	body, err := json.Marshal(analyzeRequest{RawData: rawData, FileName: fileName})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai mapper returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	parsed, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}
	return normalize(parsed), nil
}

// decodeResponse parses the body, running it through json-repair when the
// model returned almost-JSON (trailing commas, single quotes, markdown
// fences).
func decodeResponse(raw []byte) (*analyzeResponse, error) {
	var out analyzeResponse
	if err := json.Unmarshal(raw, &out); err == nil {
		return &out, nil
	}
	repaired, err := jsonrepair.RepairJSON(string(raw))
	if err != nil {
		return nil, fmt.Errorf("ai mapper response unparseable: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("ai mapper response invalid after repair: %w", err)
	}
	return &out, nil
}

// normalize clamps and defaults every field the engine relies on.
func normalize(resp *analyzeResponse) *AnalysisResult {
	st := resp.Structure.StatementType
	switch st {
	case mapper.StatementProfitLoss, mapper.StatementCashFlow, mapper.StatementBalanceSheet:
	default:
		st = mapper.StatementProfitLoss
	}

	structure := mapper.SheetStructure{
		Currency:      strings.ToUpper(strings.TrimSpace(resp.Structure.Currency)),
		StatementType: st,
		NameColumn:    resp.Structure.AccountCols.NameColumn,
		DataStartRow:  resp.Structure.DataStartRow,
	}
	if structure.NameColumn < 0 {
		structure.NameColumn = 0
	}
	if structure.DataStartRow < 0 {
		structure.DataStartRow = 0
	}
	for _, pc := range resp.Structure.PeriodColumns {
		if pc.ColumnIndex <= 0 || strings.TrimSpace(pc.Label) == "" {
			continue
		}
		if pc.PeriodType == "" {
			pc.PeriodType = mapper.PeriodMonth
		}
		structure.PeriodColumns = append(structure.PeriodColumns, pc)
	}

	classifications := make(map[string]mapper.Classification, len(resp.Classifications))
	for _, cls := range resp.Classifications {
		name := strings.TrimSpace(cls.AccountName)
		if name == "" || strings.TrimSpace(cls.SuggestedCategory) == "" {
			continue
		}
		if cls.Confidence < 0 {
			cls.Confidence = 0
		}
		if cls.Confidence > 100 {
			cls.Confidence = 100
		}
		// Last write wins on duplicate names, matching the AI-preferred
		// merge rule.
		classifications[strings.ToLower(name)] = cls
	}
	return &AnalysisResult{Structure: structure, Classifications: classifications}
}
