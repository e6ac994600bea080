package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aistm7 "github.com/barkalona/AISTM7"
	"github.com/barkalona/AISTM7/core"
)

type fakeBackend struct {
	state    *core.RequirementState
	assets   map[uuid.UUID]*core.Asset
	accounts map[uuid.UUID]uint64
	price    uint64
	priceErr error
	events   []*core.RequirementUpdatedEvent
	pingErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		assets:   make(map[uuid.UUID]*core.Asset),
		accounts: make(map[uuid.UUID]uint64),
		price:    20_000,
	}
}

func (f *fakeBackend) CreateState(_ context.Context, state *core.RequirementState) error {
	if f.state != nil {
		return core.AlreadyInitialized
	}
	f.state = state.Clone()
	return nil
}

func (f *fakeBackend) GetState(_ context.Context, id uuid.UUID) (*core.RequirementState, error) {
	if f.state == nil || f.state.Id != id {
		return nil, core.StateNotFound
	}
	return f.state.Clone(), nil
}

func (f *fakeBackend) UpdateState(_ context.Context, state *core.RequirementState) error {
	if f.state == nil || f.state.Version != state.Version {
		return core.StateVersionConflict
	}
	state.Version++
	f.state = state.Clone()
	return nil
}

func (f *fakeBackend) GetCurrentPrice(context.Context, string) (*core.Price, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return &core.Price{Price: f.price, Timestamp: time.Now()}, nil
}

func (f *fakeBackend) CreateAsset(_ context.Context, decimals int32, mintAuthority uuid.UUID) (*core.Asset, error) {
	created := &core.Asset{Id: uuid.Must(uuid.NewV4()), Decimals: decimals, MintAuthority: mintAuthority}
	f.assets[created.Id] = created
	return created, nil
}

func (f *fakeBackend) DeleteAsset(_ context.Context, assetId uuid.UUID) error {
	delete(f.assets, assetId)
	return nil
}

func (f *fakeBackend) MintTo(_ context.Context, assetId, holder uuid.UUID, amount uint64) error {
	f.accounts[holder] += amount
	return nil
}

func (f *fakeBackend) BalanceOf(_ context.Context, _, holder uuid.UUID) (uint64, error) {
	return f.accounts[holder], nil
}

func (f *fakeBackend) GetTokenAccount(_ context.Context, assetId, holder uuid.UUID) (*core.TokenAccount, error) {
	amount, ok := f.accounts[holder]
	if !ok {
		return nil, core.TokenAccountNotFound
	}
	return &core.TokenAccount{AssetId: assetId, Holder: holder, Amount: amount}, nil
}

func (f *fakeBackend) RequirementUpdated(_ context.Context, event *core.RequirementUpdatedEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBackend) ListEvents(_ context.Context, limit int) ([]*core.RequirementUpdatedEvent, error) {
	if limit > len(f.events) {
		limit = len(f.events)
	}
	return f.events[:limit], nil
}

func (f *fakeBackend) Ping(context.Context) error { return f.pingErr }

type serverFixture struct {
	router    *gin.Engine
	backend   *fakeBackend
	authority uuid.UUID
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := newFakeBackend()
	svc := aistm7.NewService(backend, backend, backend, backend)
	server := NewServer(svc, backend, backend, "feed-1", core.NopLogger())

	return &serverFixture{
		router:    server.Router(),
		backend:   backend,
		authority: uuid.Must(uuid.NewV4()),
	}
}

func (f *serverFixture) do(method, path string, body any, authority string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if authority != "" {
		req.Header.Set("X-Authority", authority)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) initialize(t *testing.T, supply uint64) {
	t.Helper()
	rec := f.do(http.MethodPost, "/initialize", initializeRequest{InitialSupply: supply}, f.authority.String())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.backend.pingErr = context.DeadlineExceeded
	rec = f.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInitializeEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.initialize(t, 1_000_000)

	rec := f.do(http.MethodPost, "/initialize", initializeRequest{InitialSupply: 1}, f.authority.String())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetRequirement(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(http.MethodGet, "/requirement", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.initialize(t, 0)

	rec = f.do(http.MethodGet, "/requirement", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state core.RequirementState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, core.SEED_REQUIREMENT, state.CurrentRequirement)
}

func TestUpdateRequirementEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.initialize(t, 0)
	f.backend.price = 10_000

	rec := f.do(http.MethodPost, "/requirement/update", nil, f.authority.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Changed bool                  `json:"changed"`
		State   core.RequirementState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Changed)
	assert.Equal(t, uint64(1500), body.State.CurrentRequirement)
}

func TestUpdateRequirementWrongAuthority(t *testing.T) {
	f := newServerFixture(t)
	f.initialize(t, 0)

	rec := f.do(http.MethodPost, "/requirement/update", nil, uuid.Must(uuid.NewV4()).String())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/requirement/update", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateRequirementOracleDown(t *testing.T) {
	f := newServerFixture(t)
	f.initialize(t, 0)
	f.backend.priceErr = core.NoPriceFound

	rec := f.do(http.MethodPost, "/requirement/update", nil, f.authority.String())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerifyBalanceEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.initialize(t, 750)

	rec := f.do(http.MethodGet, "/balance/"+f.authority.String()+"/verify", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body verifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Balance)
	assert.Equal(t, uint64(750), body.Requirement)

	rec = f.do(http.MethodGet, "/balance/not-a-uuid/verify", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/balance/"+uuid.Must(uuid.NewV4()).String()+"/verify", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEvents(t *testing.T) {
	f := newServerFixture(t)
	f.initialize(t, 0)
	f.backend.price = 10_000

	rec := f.do(http.MethodPost, "/requirement/update", nil, f.authority.String())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/requirement/events", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []*core.RequirementUpdatedEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, uint64(1500), body.Events[0].NewRequirement)

	rec = f.do(http.MethodGet, "/requirement/events?limit=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}