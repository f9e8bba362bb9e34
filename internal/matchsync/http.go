package matchsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"linked-go/internal/game"
)

// APIError is a failed response whose code has no matching game error
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// HTTPTransport talks to the game HTTP API with a bearer token.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPTransport(baseURL, token string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

func (t *HTTPTransport) GetOrCreateMatch(ctx context.Context, pairID string) (*game.Match, error) {
	var m game.Match
	if err := t.do(ctx, http.MethodPost, "/pairs/"+url.PathEscape(pairID)+"/match", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *HTTPTransport) PollMatchState(ctx context.Context, matchID string) (*game.Match, error) {
	var m game.Match
	if err := t.do(ctx, http.MethodGet, "/matches/"+url.PathEscape(matchID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *HTTPTransport) SubmitTurn(ctx context.Context, matchID string, placements []game.Placement) (*game.TurnSubmissionResult, error) {
	var result game.TurnSubmissionResult
	body := game.SubmitTurnRequest{Placements: placements}
	if err := t.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(matchID)+"/turns", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) UseHint(ctx context.Context, matchID string, remaining []string) (*game.HintResult, error) {
	var result game.HintResult
	body := game.UseHintRequest{RemainingLetters: remaining}
	if err := t.do(ctx, http.MethodPost, "/matches/"+url.PathEscape(matchID)+"/hints", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var errorCodes = map[string]error{
	game.CodeTurnConflict:     game.ErrTurnConflict,
	game.CodeNoHintsRemaining: game.ErrNoHintsRemaining,
	game.CodeMatchNotFound:    game.ErrMatchNotFound,
	game.CodePairNotFound:     game.ErrPairNotFound,
	game.CodeForbidden:        game.ErrNotMatchPlayer,
	game.CodeNoPuzzle:         game.ErrNoPuzzleAvailable,
}

// decodeError maps the API's error codes back onto the game errors so callers
// can use errors.Is regardless of transport.
func decodeError(resp *http.Response) error {
	var body game.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(data))}
	}

	if body.Error == game.CodeCooldownActive && body.RetryAt != nil {
		return &game.CooldownError{RetryAt: body.RetryAt.UTC()}
	}
	if sentinel, ok := errorCodes[body.Error]; ok {
		return fmt.Errorf("%w: %s", sentinel, body.Message)
	}
	return &APIError{Status: resp.StatusCode, Code: body.Error, Message: body.Message}
}
