// Package invoke calls deployed functions through the Lambda Invoke API.
package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

const (
	// EventSource tags every health check payload so invoked functions can
	// tell health checks from real traffic.
	EventSource = "serverless-plugin-healthcheck"

	// DefaultQualifier selects the unqualified latest version.
	DefaultQualifier = "$LATEST"
)

var ErrInvocationFailed = errors.New("invocation failed")

// API is the subset of the Lambda client used here.
type API interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Client invokes functions with the health check payload.
type Client struct {
	api       API
	qualifier string
}

// NewClient creates a client. An empty qualifier selects $LATEST.
func NewClient(api API, qualifier string) *Client {
	if qualifier == "" {
		qualifier = DefaultQualifier
	}
	return &Client{api: api, qualifier: qualifier}
}

// Qualifier returns the version selector used for invocations.
func (c *Client) Qualifier() string {
	return c.qualifier
}

// Result is the outcome of one invocation.
type Result struct {
	Function   string
	StatusCode int
	Payload    []byte
	// FunctionError is the Lambda function error type, empty when none.
	FunctionError string
	Duration      time.Duration
}

// Payload builds the invocation body: params merged with the fixed source tag.
// The source tag always wins over a params key of the same name.
func Payload(params map[string]any) ([]byte, error) {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	body["source"] = EventSource
	return json.Marshal(body)
}

// Invoke performs one synchronous invocation of function. The returned error
// covers transport failures only; use Result.Err to interpret the response.
func (c *Client) Invoke(ctx context.Context, function string, params map[string]any) (*Result, error) {
	payload, err := Payload(params)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	start := time.Now()
	out, err := c.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(function),
		InvocationType: types.InvocationTypeRequestResponse,
		LogType:        types.LogTypeNone,
		Qualifier:      aws.String(c.qualifier),
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvocationFailed, function, err)
	}

	return &Result{
		Function:      function,
		StatusCode:    int(out.StatusCode),
		Payload:       out.Payload,
		FunctionError: aws.ToString(out.FunctionError),
		Duration:      time.Since(start),
	}, nil
}

type responseBody struct {
	StatusCode   *int   `json:"statusCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Err interprets the response. A non-200 invocation status, a function error,
// or a payload carrying a non-200 statusCode or an errorMessage is a failure.
func (r *Result) Err() error {
	if r.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: invocation returned status %d", ErrInvocationFailed, r.Function, r.StatusCode)
	}

	var body responseBody
	decoded := len(r.Payload) > 0 && json.Unmarshal(r.Payload, &body) == nil

	if r.FunctionError != "" {
		msg := r.FunctionError
		if decoded && body.ErrorMessage != "" {
			msg = body.ErrorMessage
		}
		return fmt.Errorf("%w: %s: %s", ErrInvocationFailed, r.Function, msg)
	}

	if !decoded {
		return nil
	}
	if body.ErrorMessage != "" {
		return fmt.Errorf("%w: %s: %s", ErrInvocationFailed, r.Function, body.ErrorMessage)
	}
	if body.StatusCode != nil && *body.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: function responded with status %d", ErrInvocationFailed, r.Function, *body.StatusCode)
	}
	return nil
}
