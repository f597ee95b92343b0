package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/accord/genesis"
	"github.com/rony4d/go-relay-accord/eventlog"
	"github.com/rony4d/go-relay-accord/evmcore"
	"github.com/rony4d/go-relay-accord/inter"
	"github.com/rony4d/go-relay-accord/ledger"
	"github.com/rony4d/go-relay-accord/utils/ratelimit"
)

var (
	owner      = evmcore.FakeAccount(1)
	challenger = evmcore.FakeAccount(2)
	relayer    = evmcore.FakeAccount(3)
	subscriber = evmcore.FakeAccount(4)
	reporter   = evmcore.FakeAccount(5)
	stranger   = evmcore.FakeAccount(6)
)

type testNode struct {
	t       *testing.T
	now     time.Time
	host    *evmcore.Host
	ledger  *ledger.Ledger
	journal *eventlog.Memory
	router  *mux.Router
}

func newTestNode(t *testing.T, opts ...Option) *testNode {
	t.Helper()

	g := genesis.FakeGenesis(6, big.NewInt(1000))
	n := &testNode{t: t, now: g.Time.Time(), journal: eventlog.NewMemory(0)}

	var err error
	n.host = evmcore.NewMemoryHost(accord.ContractAddress, nil)
	require.NoError(t, n.host.Genesis(g.Balances, g.Time))

	n.ledger, err = ledger.New(n.host.LedgerDB(), g.Rules, ledger.WithSink(n.journal))
	require.NoError(t, err)
	require.NoError(t, n.ledger.ApplyGenesis(g))

	opts = append([]Option{WithHistory(n.journal), WithClock(func() time.Time { return n.now })}, opts...)
	n.router = NewHandler(n.ledger, n.host, opts...).Router()
	return n
}

// call issues a request as caller with value attached. An empty caller
// sends no identity headers.
func (n *testNode) call(method, path string, caller common.Address, value string, body interface{}) *httptest.ResponseRecorder {
	n.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(n.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != (common.Address{}) {
		req.Header.Set(headerCaller, caller.Hex())
	}
	if value != "" {
		req.Header.Set(headerValue, value)
	}
	rec := httptest.NewRecorder()
	n.router.ServeHTTP(rec, req)
	return rec
}

func (n *testNode) get(path string, dst interface{}) {
	n.t.Helper()
	rec := n.call(http.MethodGet, path, common.Address{}, "", nil)
	require.Equal(n.t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(n.t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func (n *testNode) balance(acc common.Address) string {
	n.t.Helper()
	var resp struct {
		Balance *big.Int `json:"balance"`
	}
	n.get("/v1/accounts/"+acc.Hex()+"/balance", &resp)
	return resp.Balance.String()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// reportView decodes the textual report status and verdict.
type reportView struct {
	ID         uint64 `json:"report_id"`
	Status     string `json:"status"`
	Verdict    string `json:"verdict"`
	Challenged bool   `json:"challenged"`
}

func TestHealthCheck(t *testing.T) {
	n := newTestNode(t)
	rec := n.call(http.MethodGet, "/health", common.Address{}, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]interface{}
	decodeBody(t, rec, &resp)
	require.Equal(t, "ok", resp["status"])
}

func TestSubscriptionFlow(t *testing.T) {
	n := newTestNode(t)

	rec := n.call(http.MethodPost, "/v1/plans", relayer, "", CreatePlanRequest{
		Relayer:  relayer.Hex(),
		Duration: inter.WeekOf(big.NewInt(100)),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/v1/plans/1", rec.Header().Get("Location"))

	var plans []inter.PlanSummary
	n.get("/v1/plans", &plans)
	require.Len(t, plans, 1)
	require.Equal(t, inter.Week, plans[0].Duration.Kind)
	require.Equal(t, "100", plans[0].Duration.Price.String())

	rec = n.call(http.MethodPost, "/v1/plans/1/subscriptions", subscriber, "100", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub inter.Subscription
	decodeBody(t, rec, &sub)
	require.Equal(t, subscriber, sub.Subscriber)
	require.Equal(t, sub.Start+inter.WeekSeconds, sub.Expiry)
	require.Equal(t, "900", n.balance(subscriber))
	require.Equal(t, "100", n.balance(accord.ContractAddress))

	var latest inter.Subscription
	n.get("/v1/relayers/"+relayer.Hex()+"/subscribers/"+subscriber.Hex(), &latest)
	require.Equal(t, sub.ID, latest.ID)

	var byID inter.Subscription
	n.get("/v1/subscriptions/1", &byID)
	require.Equal(t, sub.Expiry, byID.Expiry)

	var entries []inter.SubscriberEntry
	n.get("/v1/plans/1/subscribers", &entries)
	require.Equal(t, []inter.SubscriberEntry{sub.Entry()}, entries)
	n.get("/v1/relayers/"+relayer.Hex()+"/subscribers", &entries)
	require.Len(t, entries, 1)

	var plan inter.Plan
	n.get("/v1/plans/1", &plan)
	require.Equal(t, []common.Address{subscriber}, plan.Subscribers)

	// nothing is due before the term ends
	rec = n.call(http.MethodPost, "/v1/settlements", stranger, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var settle SettleResponse
	decodeBody(t, rec, &settle)
	require.Empty(t, settle.Settlements)

	n.now = sub.Expiry.Time()
	rec = n.call(http.MethodPost, "/v1/settlements", stranger, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &settle)
	require.Len(t, settle.Settlements, 1)
	require.Equal(t, "70", settle.Paid.String())
	require.Equal(t, []uint64{1}, settle.Settlements[0].Subscriptions)
	require.Empty(t, settle.Settlements[0].Error)
	require.Equal(t, "1070", n.balance(relayer))
	require.Equal(t, "30", n.balance(accord.ContractAddress))

	// every accepted call was sealed into its own host block
	var head evmcore.Header
	n.get("/v1/head", &head)
	require.EqualValues(t, 4, head.Number)
}

func TestDisputeFlow(t *testing.T) {
	n := newTestNode(t)

	rec := n.call(http.MethodPost, "/v1/relayers/"+relayer.Hex()+"/stake", relayer, "100", StakeRequest{Amount: big.NewInt(100)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stake inter.StakeEntry
	decodeBody(t, rec, &stake)
	require.Equal(t, "100", stake.Amount.String())

	rec = n.call(http.MethodPost, "/v1/reports", reporter, "", FileReportRequest{Relayer: relayer.Hex()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "/v1/reports/1", rec.Header().Get("Location"))

	var open []reportView
	n.get("/v1/reports", &open)
	require.Len(t, open, 1)
	require.Equal(t, "open", open[0].Status)

	rec = n.call(http.MethodPost, "/v1/reports/1/challenge", stranger, "", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = n.call(http.MethodPost, "/v1/reports/1/challenge", challenger, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Report  reportView `json:"report"`
		Valid   bool       `json:"valid"`
		Penalty *big.Int   `json:"penalty"`
	}
	decodeBody(t, rec, &out)
	require.False(t, out.Valid)
	require.Equal(t, "50", out.Penalty.String())
	require.Equal(t, "resolved", out.Report.Status)
	require.Equal(t, "invalid", out.Report.Verdict)
	require.True(t, out.Report.Challenged)

	rec = n.call(http.MethodPost, "/v1/reports/1/challenge", challenger, "", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	n.get("/v1/relayers/"+relayer.Hex()+"/stake", &stake)
	require.Equal(t, "50", stake.Amount.String())
	require.Equal(t, "50", n.balance(accord.DefaultTreasury))

	var events []eventlog.Record
	n.get("/v1/events?limit=2", &events)
	require.Len(t, events, 2)
	require.Equal(t, inter.EventPenaltyApplied, events[0].Name)
	require.Equal(t, inter.EventChallenged, events[1].Name)
}

func TestExpireSweep(t *testing.T) {
	n := newTestNode(t)

	rec := n.call(http.MethodPost, "/v1/reports", reporter, "", FileReportRequest{Relayer: relayer.Hex(), Evidence: []byte("late")})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = n.call(http.MethodPost, "/v1/expirations", stranger, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ExpireResponse
	decodeBody(t, rec, &resp)
	require.Empty(t, resp.Expired)

	// the fake network window is one minute
	n.now = n.now.Add(time.Minute)
	rec = n.call(http.MethodPost, "/v1/expirations", stranger, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Expired, 1)
	require.EqualValues(t, 1, resp.Expired[0].ReportID)

	var rep reportView
	n.get("/v1/reports/1", &rep)
	require.Equal(t, "expired", rep.Status)
	require.False(t, rep.Challenged)
}

func TestRoles(t *testing.T) {
	n := newTestNode(t)

	var gov GovernanceResponse
	n.get("/v1/governance", &gov)
	require.Equal(t, GovernanceResponse{Owner: owner, Treasury: accord.DefaultTreasury, Challenger: challenger}, gov)

	rec := n.call(http.MethodPut, "/v1/roles/challenger", challenger, "", SetRoleRequest{Account: stranger.Hex()})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = n.call(http.MethodPut, "/v1/roles/challenger", owner, "", SetRoleRequest{Account: stranger.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var holder struct {
		Account common.Address `json:"account"`
	}
	n.get("/v1/roles/challenger", &holder)
	require.Equal(t, stranger, holder.Account)

	var history []inter.RoleChange
	n.get("/v1/roles/challenger/history", &history)
	require.Len(t, history, 2)
	require.Equal(t, challenger, history[1].Previous)
	require.Equal(t, stranger, history[1].Next)
}

func TestRequestErrors(t *testing.T) {
	week := CreatePlanRequest{Relayer: relayer.Hex(), Duration: inter.WeekOf(big.NewInt(100))}

	tests := []struct {
		name   string
		method string
		path   string
		caller common.Address
		value  string
		body   interface{}
		code   int
	}{
		{"missing caller", http.MethodPost, "/v1/plans", common.Address{}, "", week, http.StatusBadRequest},
		{"malformed value", http.MethodPost, "/v1/plans/1/subscriptions", subscriber, "ten", nil, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/v1/plans", relayer, "", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/plans", relayer, "", `{"relayer":"x","tier":1}`, http.StatusBadRequest},
		{"malformed relayer", http.MethodGet, "/v1/relayers/0xzz/stake", common.Address{}, "", nil, http.StatusBadRequest},
		{"unknown duration", http.MethodPost, "/v1/plans", relayer, "", `{"relayer":"` + relayer.Hex() + `","duration":{"kind":"fortnight","price":1}}`, http.StatusUnprocessableEntity},
		{"plan for someone else", http.MethodPost, "/v1/plans", stranger, "", week, http.StatusForbidden},
		{"unknown plan", http.MethodPost, "/v1/plans/9/subscriptions", subscriber, "100", nil, http.StatusNotFound},
		{"wrong payment", http.MethodPost, "/v1/plans/1/subscriptions", subscriber, "60", nil, http.StatusUnprocessableEntity},
		{"insufficient balance", http.MethodPost, "/v1/relayers/" + relayer.Hex() + "/stake", relayer, "5000", StakeRequest{Amount: big.NewInt(5000)}, http.StatusUnprocessableEntity},
		{"unknown report", http.MethodGet, "/v1/reports/3", common.Address{}, "", nil, http.StatusNotFound},
		{"no subscription", http.MethodGet, "/v1/relayers/" + relayer.Hex() + "/subscribers/" + stranger.Hex(), common.Address{}, "", nil, http.StatusNotFound},
		{"unknown route", http.MethodGet, "/v1/nothing", common.Address{}, "", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(t)
			rec := n.call(http.MethodPost, "/v1/plans", relayer, "", week)
			require.Equal(t, http.StatusCreated, rec.Code)

			rec = n.call(tt.method, tt.path, tt.caller, tt.value, tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
				var resp map[string]string
				decodeBody(t, rec, &resp)
				require.NotEmpty(t, resp["error"])
			}

			// rejected calls never move value
			require.Equal(t, "1000", n.balance(subscriber))
			require.Equal(t, "1000", n.balance(relayer))
		})
	}
}

func TestRateLimit(t *testing.T) {
	n := newTestNode(t, WithLimiter(ratelimit.New(1, 2, time.Minute)))

	path := "/v1/relayers/" + relayer.Hex() + "/stake"
	for i := 0; i < 2; i++ {
		rec := n.call(http.MethodGet, path, stranger, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := n.call(http.MethodGet, path, stranger, "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other callers keep their own budget
	rec = n.call(http.MethodGet, path, reporter, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	n.now = n.now.Add(time.Second)
	rec = n.call(http.MethodGet, path, stranger, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEventsDisabled(t *testing.T) {
	n := newTestNode(t)
	n.router = NewHandler(n.ledger, n.host).Router()

	rec := n.call(http.MethodGet, "/v1/events", common.Address{}, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{ledger.ErrPlanNotFound, http.StatusNotFound},
		{ledger.ErrNotChallenger, http.StatusForbidden},
		{ledger.ErrReportClosed, http.StatusConflict},
		{ledger.ErrIncorrectPayment, http.StatusUnprocessableEntity},
		{evmcore.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{inter.ErrAmountOverflow, http.StatusUnprocessableEntity},
		{ledger.ErrTransferFailed, http.StatusBadGateway},
		{evmcore.ErrTimeReversal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.code, statusOf(tt.err), tt.err.Error())
	}
}
