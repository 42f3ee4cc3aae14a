package featureservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"visit-route-service/internal/domain"
	"visit-route-service/internal/platform/httpx"
	"visit-route-service/internal/platform/obs"
	"visit-route-service/internal/ports"
)

// Client implements ports.FeatureClient against an ArcGIS-style feature
// service layer (".../FeatureServer/<n>").
type Client struct {
	http  *httpx.Client
	token string
}

func NewClient(token string, http *httpx.Client) *Client {
	if http == nil {
		http = httpx.New(30 * time.Second)
	}
	return &Client{http: http, token: token}
}

type serviceError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *serviceError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("service error %d: %s (%s)", e.Code, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}

type queryResponse struct {
	Features              []domain.Feature `json:"features"`
	ExceededTransferLimit bool             `json:"exceededTransferLimit"`
	Error                 *serviceError    `json:"error"`
}

type editOutcome struct {
	ObjectID float64 `json:"objectId"`
	Success  bool    `json:"success"`
	Error    *struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type editResponse struct {
	AddResults    []editOutcome `json:"addResults"`
	UpdateResults []editOutcome `json:"updateResults"`
	DeleteResults []editOutcome `json:"deleteResults"`
	Error         *serviceError `json:"error"`
}

// Fetch runs a query and follows exceededTransferLimit paging until the
// layer has returned every matching feature.
func (c *Client) Fetch(ctx context.Context, layerURL string, opts ports.FetchOptions) (_ []domain.Feature, err error) {
	defer obs.Time(ctx, "featureservice.Fetch")(&err)

	if strings.TrimSpace(layerURL) == "" {
		return nil, fmt.Errorf("fetch features: layer url is empty: %w", domain.ErrConfig)
	}

	where := opts.Where
	if strings.TrimSpace(where) == "" {
		where = "1=1"
	}

	form := url.Values{}
	form.Set("where", where)
	form.Set("f", "json")
	form.Set("outSR", "4326")
	if opts.DistinctField != "" {
		form.Set("outFields", opts.DistinctField)
		form.Set("returnDistinctValues", "true")
		form.Set("returnGeometry", "false")
	} else {
		form.Set("outFields", "*")
		form.Set("returnGeometry", strconv.FormatBool(opts.ReturnGeometry))
	}

	var out []domain.Feature
	for offset := 0; ; {
		form.Set("resultOffset", strconv.Itoa(offset))

		var qr queryResponse
		if err := c.post(ctx, layerURL+"/query", form, &qr); err != nil {
			return nil, fmt.Errorf("fetch features %q where %q: %w", layerURL, where, err)
		}
		if qr.Error != nil {
			return nil, fmt.Errorf("fetch features %q where %q: %w", layerURL, where, errors.Join(domain.ErrTransport, qr.Error))
		}

		for _, f := range qr.Features {
			if f.Attributes == nil {
				f.Attributes = map[string]any{}
			}
			if !opts.ReturnGeometry || opts.DistinctField != "" {
				f.Geometry = nil
			}
			out = append(out, f)
		}

		if !qr.ExceededTransferLimit || len(qr.Features) == 0 {
			break
		}
		offset += len(qr.Features)
	}

	return out, nil
}

// Push sends adds and updates in a single applyEdits call.
func (c *Client) Push(ctx context.Context, layerURL string, req ports.PushRequest) (_ *ports.EditResult, err error) {
	defer obs.Time(ctx, "featureservice.Push")(&err)

	if len(req.Adds) == 0 && len(req.Updates) == 0 {
		return &ports.EditResult{}, nil
	}

	form := url.Values{}
	form.Set("f", "json")
	form.Set("rollbackOnFailure", "true")
	if len(req.Adds) > 0 {
		b, err := json.Marshal(req.Adds)
		if err != nil {
			return nil, fmt.Errorf("push features: encode adds: %w", err)
		}
		form.Set("adds", string(b))
	}
	if len(req.Updates) > 0 {
		b, err := json.Marshal(req.Updates)
		if err != nil {
			return nil, fmt.Errorf("push features: encode updates: %w", err)
		}
		form.Set("updates", string(b))
	}

	var er editResponse
	if err := c.post(ctx, layerURL+"/applyEdits", form, &er); err != nil {
		return nil, fmt.Errorf("push features %q: %w", layerURL, err)
	}
	if er.Error != nil {
		return nil, fmt.Errorf("push features %q: %w", layerURL, errors.Join(domain.ErrTransport, er.Error))
	}

	return er.result(), nil
}

// Remove deletes by object ids when given, otherwise by where clause.
func (c *Client) Remove(ctx context.Context, layerURL string, req ports.RemoveRequest) (_ *ports.EditResult, err error) {
	defer obs.Time(ctx, "featureservice.Remove")(&err)

	form := url.Values{}
	form.Set("f", "json")
	switch {
	case len(req.ObjectIDs) > 0:
		ids := make([]string, 0, len(req.ObjectIDs))
		for _, id := range req.ObjectIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		form.Set("objectIds", strings.Join(ids, ","))
	case strings.TrimSpace(req.Where) != "":
		form.Set("where", req.Where)
	default:
		return nil, errors.New("remove features: where clause or object ids required")
	}

	var er editResponse
	if err := c.post(ctx, layerURL+"/deleteFeatures", form, &er); err != nil {
		return nil, fmt.Errorf("remove features %q: %w", layerURL, err)
	}
	if er.Error != nil {
		return nil, fmt.Errorf("remove features %q: %w", layerURL, errors.Join(domain.ErrTransport, er.Error))
	}

	return er.result(), nil
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values, out any) error {
	if c.token != "" {
		form.Set("token", c.token)
	}
	body := form.Encode()

	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return errors.Join(domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", errors.Join(domain.ErrTransport, err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", errors.Join(domain.ErrTransport, err))
	}
	return nil
}

func (r *editResponse) result() *ports.EditResult {
	conv := func(in []editOutcome) []ports.EditOutcome {
		out := make([]ports.EditOutcome, 0, len(in))
		for _, o := range in {
			e := ports.EditOutcome{ObjectID: int64(o.ObjectID), Success: o.Success}
			if o.Error != nil {
				e.Error = fmt.Sprintf("%d: %s", o.Error.Code, o.Error.Description)
			}
			out = append(out, e)
		}
		return out
	}
	return &ports.EditResult{
		Adds:    conv(r.AddResults),
		Updates: conv(r.UpdateResults),
		Deletes: conv(r.DeleteResults),
	}
}
