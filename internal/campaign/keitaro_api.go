package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Data is one user's campaign attribution as reported by the tracker.
type Data struct {
	CampaignID   int64
	CampaignName string
	Found        bool
	Reason       string
}

// TrackerAPI answers "which campaign produced this sub id".
type TrackerAPI interface {
	CampaignForSubID(ctx context.Context, subID string) (*Data, error)
}

// KeitaroAdminAPI queries the Keitaro admin reports endpoint.
type KeitaroAdminAPI struct {
	domain string
	apiKey string
	http   *http.Client
	log    *zap.Logger
}

func NewKeitaroAdminAPI(domain, apiKey string, log *zap.Logger) *KeitaroAdminAPI {
	return &KeitaroAdminAPI{
		domain: domain,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
		log:    log,
	}
}

type reportRequest struct {
	Range    map[string]string `json:"range"`
	Filters  []reportFilter    `json:"filters"`
	Grouping []string          `json:"grouping"`
	Metrics  []string          `json:"metrics"`
	Limit    int               `json:"limit"`
}

type reportFilter struct {
	Name       string `json:"name"`
	Operator   string `json:"operator"`
	Expression string `json:"expression"`
}

type reportResponse struct {
	Rows []struct {
		CampaignID   int64  `json:"campaign_id"`
		CampaignName string `json:"campaign_name"`
	} `json:"rows"`
}

func (a *KeitaroAdminAPI) CampaignForSubID(ctx context.Context, subID string) (*Data, error) {
	payload := reportRequest{
		Range: map[string]string{"interval": "last_30_days"},
		Filters: []reportFilter{
			{Name: "sub_id", Operator: "EQUALS", Expression: subID},
		},
		Grouping: []string{"campaign_id", "campaign_name"},
		Metrics:  []string{"clicks"},
		Limit:    1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.domain+"/admin_api/v1/reports/build", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Api-Key", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports API for sub id %s: %w", subID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		a.log.Warn("Reports API error",
			zap.String("sub_id", subID),
			zap.Int("status", resp.StatusCode))
		return &Data{Found: false, Reason: fmt.Sprintf("API error: %d", resp.StatusCode)}, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read report response: %w", err)
	}

	var report reportResponse
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("invalid report response: %w", err)
	}

	if len(report.Rows) == 0 {
		return &Data{Found: false, Reason: "no data in response"}, nil
	}

	row := report.Rows[0]
	return &Data{CampaignID: row.CampaignID, CampaignName: row.CampaignName, Found: true}, nil
}
