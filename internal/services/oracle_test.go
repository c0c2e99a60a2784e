package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOracleServer(t *testing.T, handler func(req oracleRequest) oracleResponse) (*HTTPOracle, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req oracleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NoError(t, json.NewEncoder(w).Encode(handler(req)))
	}))
	t.Cleanup(srv.Close)

	o := &HTTPOracle{
		endpoint: srv.URL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	return o, srv
}

func TestHTTPOracle_ClassifyIntent(t *testing.T) {
	o, _ := newOracleServer(t, func(req oracleRequest) oracleResponse {
		assert.Equal(t, "classify_intent", req.Op)
		assert.Equal(t, "admission_grade", req.StateContext)
		return oracleResponse{Intent: "AskFAQ"}
	})

	intent, err := o.ClassifyIntent("when do you open?", "admission_grade")
	require.NoError(t, err)
	assert.Equal(t, IntentAskFAQ, intent)
}

func TestHTTPOracle_ClassifyIntent_UnknownLabelsCollapse(t *testing.T) {
	o, _ := newOracleServer(t, func(req oracleRequest) oracleResponse {
		return oracleResponse{Intent: "SomethingNew"}
	})

	intent, err := o.ClassifyIntent("hello", "")
	require.NoError(t, err)
	assert.Equal(t, IntentUnknown, intent)
}

func TestHTTPOracle_ValidateField(t *testing.T) {
	o, _ := newOracleServer(t, func(req oracleRequest) oracleResponse {
		assert.Equal(t, "validate_field", req.Op)
		assert.Equal(t, "grade_level", req.Kind)
		return oracleResponse{Accepted: true, NormalizedValue: "3"}
	})

	res, err := o.ValidateField(FieldGrade, "three")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "3", res.NormalizedValue)
}

func TestHTTPOracle_InterpretYesNo(t *testing.T) {
	o, _ := newOracleServer(t, func(req oracleRequest) oracleResponse {
		return oracleResponse{YesNo: "maybe"}
	})

	yn, err := o.InterpretYesNo("perhaps")
	require.NoError(t, err)
	assert.Equal(t, YesNoUnknown, yn)
}

func TestHTTPOracle_AnswerQuestion(t *testing.T) {
	o, _ := newOracleServer(t, func(req oracleRequest) oracleResponse {
		assert.Equal(t, "answer_question", req.Op)
		assert.Equal(t, "school doc", req.Knowledge)
		return oracleResponse{Answer: "We open at 8 AM."}
	})

	answer, err := o.AnswerQuestion("opening hours?", "school doc")
	require.NoError(t, err)
	assert.Equal(t, "We open at 8 AM.", answer)
}

func TestHTTPOracle_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	o := &HTTPOracle{endpoint: srv.URL, client: &http.Client{Timeout: 5 * time.Second}}

	_, err := o.ClassifyIntent("hello", "")
	assert.Error(t, err)

	intent, _ := o.ClassifyIntent("hello", "")
	assert.Equal(t, IntentUnknown, intent)
}
