package paypro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Subscription management endpoints
const (
	pathSuspend   = "/Subscriptions/Suspend"
	pathRenew     = "/Subscriptions/Renew"
	pathTerminate = "/Subscriptions/Terminate"
)

// ActionResult is the outcome of a subscription management call. Callers
// must treat anything but Success as "nothing changed remotely".
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type managementRequest struct {
	SubscriptionID  int64  `json:"subscriptionId"`
	VendorAccountID int64  `json:"vendorAccountId"`
	APISecretKey    string `json:"apiSecretKey"`
}

type managementResponse struct {
	IsSuccess bool `json:"isSuccess"`
	Errors    []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// CancelSubscription suspends recurring billing for subscriptionID
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) ActionResult {
	return g.manage(ctx, pathSuspend, subscriptionID)
}

// ResumeSubscription re-enables a suspended subscription
func (g *Gateway) ResumeSubscription(ctx context.Context, subscriptionID string) ActionResult {
	return g.manage(ctx, pathRenew, subscriptionID)
}

// TerminateSubscription ends a subscription permanently
func (g *Gateway) TerminateSubscription(ctx context.Context, subscriptionID string) ActionResult {
	return g.manage(ctx, pathTerminate, subscriptionID)
}

func failure(err error) ActionResult {
	return ActionResult{Success: false, Error: err.Error()}
}

func (g *Gateway) manage(ctx context.Context, path, subscriptionID string) ActionResult {
	id, err := strconv.ParseInt(strings.TrimSpace(subscriptionID), 10, 64)
	if err != nil || id <= 0 {
		return failure(fmt.Errorf("invalid subscription id %q", subscriptionID))
	}

	body, err := json.Marshal(managementRequest{
		SubscriptionID:  id,
		VendorAccountID: g.cfg.VendorAccountID,
		APISecretKey:    g.cfg.APISecretKey,
	})
	if err != nil {
		return failure(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return failure(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return failure(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failure(fmt.Errorf("read response body: %w", err))
	}

	var result managementResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return failure(fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err))
	}

	if !result.IsSuccess {
		msg := fmt.Sprintf("processor rejected request (status %d)", resp.StatusCode)
		if len(result.Errors) > 0 && result.Errors[0].Message != "" {
			msg = result.Errors[0].Message
		}
		return ActionResult{Success: false, Error: msg}
	}

	return ActionResult{Success: true}
}
