package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

var ErrUnexpectedStatus = errors.New("quiz api returned unexpected status")

// Client talks to the quiz service HTTP API. The access token is
// passed per call because the operator can replace it at any time
// while the bot is running.
type Client struct {
	baseURL string
	http    *http.Client
}

// Account describes the caller's quiz account.
type Account struct {
	GamesLeft int `json:"games_left"` // remaining play credits
}

// SubmitResult is the service's verdict on a submitted answer.
type SubmitResult struct {
	Correct   bool // the answer was correct
	Completed bool // the current round is over
}

type questionPayload struct {
	Question string   `json:"question"`
	Title    string   `json:"title"`
	Options  []string `json:"options"`
	Position int      `json:"position"`
}

type submitPayload struct {
	Position int    `json:"position"`
	Answer   string `json:"answer"`
	Boost    bool   `json:"boost"`
}

type submitResponse struct {
	Correct bool   `json:"correct"`
	Status  string `json:"status"`
}

// New creates a quiz service client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Account fetches account info, including remaining play credits.
func (c *Client) Account(ctx context.Context, token string) (*Account, error) {
	var account Account
	if err := c.do(ctx, token, http.MethodGet, "/api/account", nil, &account); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return &account, nil
}

// NextQuestion fetches the next question of the current round and
// validates it before handing it to the caller.
func (c *Client) NextQuestion(ctx context.Context, token string) (*entities.Question, error) {
	var payload questionPayload
	if err := c.do(ctx, token, http.MethodGet, "/api/question", nil, &payload); err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}

	q := &entities.Question{
		Text:     payload.Question,
		Title:    payload.Title,
		Options:  payload.Options,
		Position: payload.Position,
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("validate question: %w", err)
	}

	return q, nil
}

// SubmitAnswer submits an answer for the question at the given
// position. The boost flag is always set, matching how the official
// client plays.
func (c *Client) SubmitAnswer(ctx context.Context, token string, position int, answer string) (*SubmitResult, error) {
	body := submitPayload{
		Position: position,
		Answer:   answer,
		Boost:    true,
	}

	var resp submitResponse
	if err := c.do(ctx, token, http.MethodPost, "/api/answer", body, &resp); err != nil {
		return nil, fmt.Errorf("submit answer: %w", err)
	}

	return &SubmitResult{
		Correct:   resp.Correct,
		Completed: resp.Status == "completed",
	}, nil
}

// do performs one authorized request and decodes the JSON response.
func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
