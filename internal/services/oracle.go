package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Intent is the classification of an inbound message
type Intent string

const (
	IntentAdmissionFlow Intent = "AdmissionFlow"
	IntentAskFAQ        Intent = "AskFAQ"
	IntentUnknown       Intent = "Unknown"
)

// YesNo is the interpretation of a confirmation answer
type YesNo string

const (
	YesNoYes     YesNo = "yes"
	YesNoNo      YesNo = "no"
	YesNoUnknown YesNo = "unknown"
)

// FieldKind identifies which validation the oracle should run
type FieldKind string

const (
	FieldName     FieldKind = "name"
	FieldEmail    FieldKind = "email"
	FieldGrade    FieldKind = "grade_level"
	FieldSemester FieldKind = "semester"
	FieldReferral FieldKind = "referral_source"
)

// FieldResult is the structured outcome of a field validation.
// Accepted carries the normalized value; a rejection carries the message
// shown verbatim to the user.
type FieldResult struct {
	Accepted        bool   `json:"accepted"`
	NormalizedValue string `json:"normalized_value"`
	Message         string `json:"message"`
}

// Oracle is the external AI capability: intent classification, field
// validation, yes/no interpretation and free-text question answering.
// All calls are blocking and fallible.
type Oracle interface {
	ClassifyIntent(text, stateContext string) (Intent, error)
	ValidateField(kind FieldKind, text string) (FieldResult, error)
	InterpretYesNo(text string) (YesNo, error)
	AnswerQuestion(text, knowledgeDoc string) (string, error)
}

// HTTPOracle talks to the AI service over a JSON endpoint
type HTTPOracle struct {
	endpoint string
	client   *http.Client
}

// NewHTTPOracle creates an oracle client from environment configuration
func NewHTTPOracle() (*HTTPOracle, error) {
	endpoint := os.Getenv("ORACLE_URL")
	if endpoint == "" {
		return nil, fmt.Errorf("missing ORACLE_URL in environment variables")
	}

	return &HTTPOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type oracleRequest struct {
	Op           string `json:"op"`
	Text         string `json:"text"`
	StateContext string `json:"state_context,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Knowledge    string `json:"knowledge,omitempty"`
}

type oracleResponse struct {
	Intent          string `json:"intent,omitempty"`
	Accepted        bool   `json:"accepted"`
	NormalizedValue string `json:"normalized_value,omitempty"`
	Message         string `json:"message,omitempty"`
	YesNo           string `json:"yes_no,omitempty"`
	Answer          string `json:"answer,omitempty"`
}

func (o *HTTPOracle) call(req oracleRequest) (*oracleResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Post(o.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var out oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("oracle response decode failed: %w", err)
	}
	return &out, nil
}

func (o *HTTPOracle) ClassifyIntent(text, stateContext string) (Intent, error) {
	resp, err := o.call(oracleRequest{Op: "classify_intent", Text: text, StateContext: stateContext})
	if err != nil {
		return IntentUnknown, err
	}
	switch Intent(resp.Intent) {
	case IntentAdmissionFlow, IntentAskFAQ:
		return Intent(resp.Intent), nil
	default:
		return IntentUnknown, nil
	}
}

func (o *HTTPOracle) ValidateField(kind FieldKind, text string) (FieldResult, error) {
	resp, err := o.call(oracleRequest{Op: "validate_field", Kind: string(kind), Text: text})
	if err != nil {
		return FieldResult{}, err
	}
	return FieldResult{
		Accepted:        resp.Accepted,
		NormalizedValue: resp.NormalizedValue,
		Message:         resp.Message,
	}, nil
}

func (o *HTTPOracle) InterpretYesNo(text string) (YesNo, error) {
	resp, err := o.call(oracleRequest{Op: "interpret_yes_no", Text: text})
	if err != nil {
		return YesNoUnknown, err
	}
	switch YesNo(resp.YesNo) {
	case YesNoYes, YesNoNo:
		return YesNo(resp.YesNo), nil
	default:
		return YesNoUnknown, nil
	}
}

func (o *HTTPOracle) AnswerQuestion(text, knowledgeDoc string) (string, error) {
	resp, err := o.call(oracleRequest{Op: "answer_question", Text: text, Knowledge: knowledgeDoc})
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// compile-time interface check
var _ Oracle = (*HTTPOracle)(nil)
