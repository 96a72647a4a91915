// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/policy-hypervisor/agent"
	"github.com/sage-x-project/policy-hypervisor/attest"
	"github.com/sage-x-project/policy-hypervisor/crypto"
	"github.com/sage-x-project/policy-hypervisor/internal/logger"
	"github.com/sage-x-project/policy-hypervisor/llm"
	"github.com/sage-x-project/policy-hypervisor/policy"
	"github.com/sage-x-project/policy-hypervisor/session"
	"github.com/sage-x-project/policy-hypervisor/tool"
)

// scriptedLLM returns queued responses in order, one per call, so the
// plan/answer/raw-completion stages are all driven deterministically
// without a real model.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (p *scriptedLLM) next() string {
	if p.calls >= len(p.responses) {
		return ""
	}
	r := p.responses[p.calls]
	p.calls++
	return r
}

func (p *scriptedLLM) Complete(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	return &llm.Response{Content: p.next()}, nil
}

func (p *scriptedLLM) CompleteJSON(ctx context.Context, req llm.CompletionRequest, out interface{}) error {
	return nil
}

func (p *scriptedLLM) CompleteWithParams(ctx context.Context, req llm.CompletionRequest) (*llm.Response, error) {
	return &llm.Response{Content: p.next()}, nil
}

func (p *scriptedLLM) Model() string { return "scripted-model" }

func newTestServer(t *testing.T, responses []string, operatorToken string) *httptest.Server {
	t.Helper()

	toolReg := tool.NewRegistry()
	require.NoError(t, tool.RegisterDefaultTools(toolReg))

	policies := policy.DefaultCryptoPolicy()
	checker := policy.DefaultCryptoPolicyChecker()
	provider := &scriptedLLM{responses: responses}
	quoteProvider := attest.NewSoftwareProvider()

	a := agent.New(agent.DefaultConfig(), toolReg, checker, provider, quoteProvider)

	srv := &Server{
		Sessions:      session.NewRegistry(),
		Policies:      policies,
		Checker:       checker,
		Tools:         toolReg,
		Agent:         a,
		LLM:           provider,
		QuoteProvider: quoteProvider,
		Log:           logger.NewLogger(io.Discard, logger.ErrorLevel),
		OperatorToken: operatorToken,
	}

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestPingAndHealthz(t *testing.T) {
	ts := newTestServer(t, nil, "")

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "pong", string(body))

	resp2, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestCreateKeypairAndVerifiableVariant(t *testing.T) {
	ts := newTestServer(t, nil, "")

	clientKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/encrypt/create_keypair", createKeypairRequest{
		PubKey: crypto.EncodePublicKeyHex(clientKey.Public),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out createKeypairResponse
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.SessionPubKey)
	require.NotEmpty(t, out.SessionID)
	require.Empty(t, out.Quote)

	vresp := postJSON(t, ts.URL+"/verifiable/encrypt/create_keypair", createKeypairRequest{
		PubKey: crypto.EncodePublicKeyHex(clientKey.Public),
	})
	require.Equal(t, http.StatusOK, vresp.StatusCode)
	var vout createKeypairResponse
	decodeBody(t, vresp, &vout)
	require.NotEmpty(t, vout.Quote)
}

// establishedSession drives a create_keypair handshake and returns enough
// client-side state to encrypt a request and decrypt the matching response.
type establishedSession struct {
	clientKey *crypto.KeyPair
	sessionID string
	aeadKey   []byte
}

func establishSession(t *testing.T, ts *httptest.Server) *establishedSession {
	t.Helper()

	clientKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/encrypt/create_keypair", createKeypairRequest{
		PubKey: crypto.EncodePublicKeyHex(clientKey.Public),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out createKeypairResponse
	decodeBody(t, resp, &out)

	sessionPub, err := crypto.DecodePublicKeyHex(out.SessionPubKey)
	require.NoError(t, err)

	aeadKey, err := crypto.EstablishKey(clientKey.Private, sessionPub, out.SessionID)
	require.NoError(t, err)

	return &establishedSession{clientKey: clientKey, sessionID: out.SessionID, aeadKey: aeadKey}
}

func (es *establishedSession) encrypt(t *testing.T, plaintext string) string {
	t.Helper()
	aead, err := crypto.NewAEAD(es.aeadKey)
	require.NoError(t, err)

	sessionUUID, err := uuid.Parse(es.sessionID)
	require.NoError(t, err)

	nonce := crypto.DeriveNonce(sessionUUID[:])
	ciphertext := aead.Seal(nil, nonce[:], []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext)
}

func (es *establishedSession) decrypt(t *testing.T, ciphertextHex, nonceHex string) string {
	t.Helper()
	aead, err := crypto.NewAEAD(es.aeadKey)
	require.NoError(t, err)

	ciphertext, err := hex.DecodeString(ciphertextHex)
	require.NoError(t, err)
	nonce, err := hex.DecodeString(nonceHex)
	require.NoError(t, err)

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	require.NoError(t, err)
	return string(plaintext)
}

func TestOpenAIQueryRoundTrip(t *testing.T) {
	ts := newTestServer(t, []string{"a synthetic completion"}, "")
	es := establishSession(t, ts)

	encryptedPrompt := es.encrypt(t, "What is the price of BTC?")
	resp := postJSON(t, ts.URL+"/openai/query", openAIQueryRequest{
		EncryptedPrompt: encryptedPrompt,
		PublicKey:       crypto.EncodePublicKeyHex(es.clientKey.Public),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out openAIQueryResponse
	decodeBody(t, resp, &out)
	require.Equal(t, "scripted-model", out.Model)
	require.NotEmpty(t, out.QueryCommitment)
	require.Equal(t, "a synthetic completion", es.decrypt(t, out.EncryptedResponse, out.ResponseNonce))
}

func TestAgentQueryRoundTrip(t *testing.T) {
	ts := newTestServer(t, []string{
		"THOUGHT: need price\nTOOL_CALL: {\"tool\": \"PriceFeedTool\", \"arguments\": {\"symbol\": \"BTC\"}}",
		"According to PriceFeedTool, BTC is priced accordingly.",
	}, "")
	es := establishSession(t, ts)

	encryptedQuery := es.encrypt(t, "What is the price of BTC?")
	resp := postJSON(t, ts.URL+"/verifiable/agent/query", agentQueryRequest{
		EncryptedQuery: encryptedQuery,
		PublicKey:      crypto.EncodePublicKeyHex(es.clientKey.Public),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out agentQueryResponse
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.ExecutionHash)
	require.NotEmpty(t, out.Quote)
	require.NotNil(t, out.Compliance)
	require.True(t, out.Compliance.Compliant)
	require.Equal(t, "According to PriceFeedTool, BTC is priced accordingly.", es.decrypt(t, out.EncryptedResponse, out.ResponseNonce))
}

func TestAgentQueryUnknownSessionIsUnauthorized(t *testing.T) {
	ts := newTestServer(t, nil, "")

	clientKey, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/agent/query", agentQueryRequest{
		EncryptedQuery: "00",
		PublicKey:      crypto.EncodePublicKeyHex(clientKey.Public),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAgentQueryRequiresOperatorToken(t *testing.T) {
	ts := newTestServer(t, nil, "shared-secret")
	es := establishSession(t, ts)

	encryptedQuery := es.encrypt(t, "anything")
	resp := postJSON(t, ts.URL+"/agent/query", agentQueryRequest{
		EncryptedQuery: encryptedQuery,
		PublicKey:      crypto.EncodePublicKeyHex(es.clientKey.Public),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestToolCatalog(t *testing.T) {
	ts := newTestServer(t, nil, "")

	resp, err := http.Get(ts.URL + "/agent/tools")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []tool.Describe
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out)
}
