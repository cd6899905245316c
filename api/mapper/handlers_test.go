package mapper

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WarrenFinSaas/internal/aiclient"
	"WarrenFinSaas/internal/mapper"
	"WarrenFinSaas/internal/session"
)

const cashFlowCSV = `Demo Cash Flow 2024
Accounts,January 2024,February 2024
Beginning Balance,1000,1200
INCOME,,
Sales Revenue,5000,5200
Total Income,5000,5200
Rent,-800,-800
Total Expenses,-800,-800
Gross Margin %,52%,51%
`

func testHandler(t *testing.T) *Handler {
	t.Helper()
	t.Setenv("AI_MAPPER_URL", "")
	return &Handler{
		sessions: session.NewManager(time.Hour),
		ai:       aiclient.NewClientFromEnv(),
		engine:   mapper.NewEngine(mapper.DefaultTaxonomy()),
		store:    NewStore(nil, nil),
	}
}

func uploadCSV(t *testing.T, h *Handler, csv string) accountsResponse {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/mapper/statements/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp accountsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func doJSON(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *strings.Reader
	if body == "" {
		r = strings.NewReader("{}")
	} else {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func findAccount(t *testing.T, resp accountsResponse, name string) *mapper.AccountNode {
	t.Helper()
	for _, n := range resp.Accounts {
		if n.AccountName == name {
			return n
		}
	}
	t.Fatalf("account %q not in response", name)
	return nil
}

func TestAnalyzeStatement(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)

	assert.NotEmpty(t, resp.StatementID)
	assert.Equal(t, "statement.csv", resp.FileName)
	require.Len(t, resp.Structure.PeriodColumns, 2)
	assert.Equal(t, 2, resp.Structure.DataStartRow)
	assert.Equal(t, mapper.StatementProfitLoss, resp.Structure.StatementType)
	require.NotEmpty(t, resp.Accounts)
	assert.Equal(t, 1, resp.UncategorizedCount, "only the unmatched opening balance is uncategorized")

	sales := findAccount(t, resp, "Sales Revenue")
	assert.Equal(t, mapper.CategoryRevenue, sales.Category)
	total := findAccount(t, resp, "Total Income")
	assert.True(t, total.IsTotal)
	margin := findAccount(t, resp, "Gross Margin %")
	assert.True(t, margin.IsCalculated)
	assert.Equal(t, mapper.CategoryMarginRatios, margin.Category)
}

func TestAnalyzeStatementMissingFile(t *testing.T) {
	h := testHandler(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/mapper/statements/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAccountsUnknownSession(t *testing.T) {
	h := testHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/mapper/statements/nope/accounts", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleAccountActive(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)
	begin := findAccount(t, resp, "Beginning Balance")

	rec := doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/accounts/"+strconv.Itoa(begin.RowIndex)+"/active", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated mapper.AccountNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.IsActive)
}

func TestToggleAccountActiveUnknownRow(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)
	rec := doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/accounts/999/active", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReclassifyAccount(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)
	sales := findAccount(t, resp, "Sales Revenue")
	path := "/mapper/statements/" + resp.StatementID + "/accounts/" + strconv.Itoa(sales.RowIndex) + "/category"

	rec := doJSON(t, h, http.MethodPost, path, `{"category":"cogs","subcategory":"direct_costs"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated mapper.AccountNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, mapper.CategoryCOGS, updated.Category)
	assert.False(t, updated.IsInflow, "reclassification cascades polarity")

	rec = doJSON(t, h, http.MethodPost, path, `{"category":"not_a_category"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeAccountType(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)
	rent := findAccount(t, resp, "Rent")
	path := "/mapper/statements/" + resp.StatementID + "/accounts/" + strconv.Itoa(rent.RowIndex) + "/type"

	rec := doJSON(t, h, http.MethodPost, path, `{"type":"header"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated mapper.AccountNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.IsSectionHeader)
	assert.Empty(t, updated.Subcategory)

	rec = doJSON(t, h, http.MethodPost, path, `{"type":"mystery"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationAndSaveGate(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)

	rec := doJSON(t, h, http.MethodGet, "/mapper/statements/"+resp.StatementID+"/validation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 1, v.UncategorizedCount)
	assert.False(t, v.CanSave)

	// the save gate refuses while anything is uncategorized
	rec = doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/save", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// deactivating the offending row clears the gate
	begin := findAccount(t, resp, "Beginning Balance")
	rec = doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/accounts/"+strconv.Itoa(begin.RowIndex)+"/active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/mapper/statements/"+resp.StatementID+"/validation", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, 0, v.UncategorizedCount)
	assert.True(t, v.CanSave)

	// with no database wired the save fails downstream of the gate
	rec = doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/save", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReanalyzeDiscardsEdits(t *testing.T) {
	h := testHandler(t)
	resp := uploadCSV(t, h, cashFlowCSV)
	begin := findAccount(t, resp, "Beginning Balance")

	rec := doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/accounts/"+strconv.Itoa(begin.RowIndex)+"/active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/mapper/statements/"+resp.StatementID+"/reanalyze", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var fresh accountsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Equal(t, resp.StatementID, fresh.StatementID)
	assert.True(t, findAccount(t, fresh, "Beginning Balance").IsActive, "reanalysis rebuilds from the original sheet")
}

func TestBulkReclassifySavedValidation(t *testing.T) {
	h := testHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/mapper/saved/abc/categories", `{"rowIndexes":[1],"categories":["nonsense"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/mapper/saved/abc/categories", `{"rowIndexes":[],"categories":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServicePortFromConfig(t *testing.T) {
	assert.Equal(t, "9000", servicePort(map[string]interface{}{"port": 9000}))
	assert.Equal(t, "9001", servicePort(map[string]interface{}{"port": float64(9001)}))
	assert.Equal(t, "9002", servicePort(map[string]interface{}{"port": "9002"}))
	t.Setenv("MAPPER_PORT", "")
	assert.Equal(t, "7010", servicePort(map[string]interface{}{}))
}
