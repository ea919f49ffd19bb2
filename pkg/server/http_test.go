package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/cost-reporting/pkg/billing"
	mockbilling "github.com/operator-framework/cost-reporting/pkg/billing/mock"
	"github.com/operator-framework/cost-reporting/pkg/discount"
)

var (
	testRandSeed = rand.NewSource(0)
	testRand     = rand.New(testRandSeed)
	testLogger   = logrus.New()
)

func newTestServer(t *testing.T, store billing.Store, dataDir string) *httptest.Server {
	t.Helper()
	router := newRouter(testLogger, testRand, routerConfig{
		store:    store,
		schedule: discount.Default(),
		dataDir:  dataDir,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, server *httptest.Server, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := server.Client().Get(server.URL + path)
	require.NoError(t, err, "expected making http request to not return error")
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	data, err := ioutil.ReadAll(body)
	require.NoError(t, err, "expected read all of resp.Body to succeed")
	t.Logf("response body: %s", string(data))
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestCostEndpoints(t *testing.T) {
	dbErr := &billing.QueryError{Operation: "test", Err: errors.New("mock database had an error")}

	tests := map[string]struct {
		path        string
		prepareFunc func(store *mockbilling.MockStore)

		expectedStatusCode int
		expectedBody       map[string]interface{}
	}{
		"undiscounted cost": {
			path: "/api/cost/undiscounted/AmazonS3",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().UndiscountedCost("AmazonS3").Return(decimal.RequireFromString("10.25"), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"undiscounted_cost": 10.25},
		},
		"undiscounted cost error": {
			path: "/api/cost/undiscounted/AmazonS3",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().UndiscountedCost("AmazonS3").Return(decimal.Zero, dbErr)
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody:       map[string]interface{}{"message": "Error querying undiscounted cost"},
		},
		"discounted cost uses the schedule": {
			path: "/api/cost/discounted/AmazonEC2",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().DiscountedCost("AmazonEC2", decimal.RequireFromString("0.50")).Return(decimal.RequireFromString("10"), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"discounted_cost": 10.0},
		},
		"discounted cost of an unlisted service": {
			path: "/api/cost/discounted/AmazonRDS",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().DiscountedCost("AmazonRDS", discount.NoDiscount).Return(decimal.RequireFromString("3.5"), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"discounted_cost": 3.5},
		},
		"discounted cost error": {
			path: "/api/cost/discounted/AmazonEC2",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().DiscountedCost("AmazonEC2", gomock.Any()).Return(decimal.Zero, dbErr)
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody:       map[string]interface{}{"message": "Error querying discounted cost"},
		},
		"blended discount rate": {
			path: "/api/cost/blended-discount-rate",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().BlendedDiscountRate().Return(decimal.RequireFromString("0.602"), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"blended_discount_rate": 0.602},
		},
		"blended discount rate without data": {
			path: "/api/cost/blended-discount-rate",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().BlendedDiscountRate().Return(decimal.Zero, &billing.QueryError{Operation: "blended_discount_rate", Err: billing.ErrNoBillingData})
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody:       map[string]interface{}{"message": "Error querying blended discount rate"},
		},
		"all costs": {
			path: "/api/cost/all",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().AllCosts().Return([]billing.ServiceCost{
					{ServiceCode: "AmazonEC2", UndiscountedCost: decimal.RequireFromString("20"), DiscountedCost: decimal.RequireFromString("10")},
					{ServiceCode: "AmazonS3", UndiscountedCost: decimal.RequireFromString("10"), DiscountedCost: decimal.RequireFromString("8.8")},
				}, nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody: map[string]interface{}{"costs": []interface{}{
				map[string]interface{}{"service_code": "AmazonEC2", "undiscounted_cost": 20.0, "discounted_cost": 10.0},
				map[string]interface{}{"service_code": "AmazonS3", "undiscounted_cost": 10.0, "discounted_cost": 8.8},
			}},
		},
		"all costs empty": {
			path: "/api/cost/all",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().AllCosts().Return(nil, nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"costs": []interface{}{}},
		},
		"all costs error": {
			path: "/api/cost/all",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().AllCosts().Return(nil, dbErr)
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody:       map[string]interface{}{"message": "Error querying all costs"},
		},
		"status": {
			path: "/api/status",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().RowCount().Return(int64(42), nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"rows": 42.0},
		},
		"discounts": {
			path:               "/api/discounts",
			expectedStatusCode: http.StatusOK,
			expectedBody: map[string]interface{}{"discounts": map[string]interface{}{
				"AmazonS3":        0.88,
				"AmazonEC2":       0.5,
				"AWSDataTransfer": 0.7,
				"AWSGlue":         0.95,
				"AmazonGuardDuty": 0.25,
			}},
		},
		"ready": {
			path: "/ready",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().Ping().Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedBody:       map[string]interface{}{"status": "ok"},
		},
		"not healthy": {
			path: "/healthy",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().Ping().Return(billing.ErrClosed)
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedBody:       map[string]interface{}{"status": "not healthy", "details": "cannot reach the billing database"},
		},
	}

	for testName, tt := range tests {
		tt := tt
		t.Run(testName, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mockbilling.NewMockStore(ctrl)
			if tt.prepareFunc != nil {
				tt.prepareFunc(store)
			}
			server := newTestServer(t, store, t.TempDir())

			status, body := getJSON(t, server, tt.path)
			assert.Equal(t, tt.expectedStatusCode, status, "Expected http status code to match")
			assert.Equal(t, tt.expectedBody, body)
		})
	}
}

func TestErrorResponsesHideInternalDetails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mockbilling.NewMockStore(ctrl)
	store.EXPECT().UndiscountedCost("AmazonS3").Return(decimal.Zero, errors.New("Catalog Error: Table with name billing_data does not exist"))
	server := newTestServer(t, store, t.TempDir())

	status, body := getJSON(t, server, "/api/cost/undiscounted/AmazonS3")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, body["message"], "billing_data")
}

func newUploadRequest(t *testing.T, url, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		if filename == "" {
			require.NoError(t, mw.WriteField(field, string(content)))
		} else {
			part, err := mw.CreateFormFile(field, filename)
			require.NoError(t, err)
			_, err = part.Write(content)
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	tests := map[string]struct {
		field       string
		filename    string
		prepareFunc func(store *mockbilling.MockStore, dataDir string)

		expectedStatusCode int
		expectedMessage    string
	}{
		"ingested": {
			field:    "file",
			filename: "cur.parquet",
			prepareFunc: func(store *mockbilling.MockStore, dataDir string) {
				store.EXPECT().Ingest(filepath.Join(dataDir, "cur.parquet")).Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedMessage:    "File uploaded and ingested successfully",
		},
		"path components are stripped": {
			field:    "file",
			filename: "../../etc/cur.parquet",
			prepareFunc: func(store *mockbilling.MockStore, dataDir string) {
				store.EXPECT().Ingest(filepath.Join(dataDir, "cur.parquet")).Return(nil)
			},
			expectedStatusCode: http.StatusOK,
			expectedMessage:    "File uploaded and ingested successfully",
		},
		"ingest failure": {
			field:    "file",
			filename: "cur.parquet",
			prepareFunc: func(store *mockbilling.MockStore, dataDir string) {
				store.EXPECT().Ingest(gomock.Any()).Return(&billing.IngestError{Path: "cur.parquet", Err: billing.ErrMissingColumns})
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedMessage:    "Error uploading and ingesting file",
		},
		"no file part": {
			expectedStatusCode: http.StatusBadRequest,
			expectedMessage:    "No file part",
		},
		"wrong field": {
			field:              "upload",
			filename:           "cur.parquet",
			expectedStatusCode: http.StatusBadRequest,
			expectedMessage:    "No file part",
		},
		"no selected file": {
			field:              "file",
			expectedStatusCode: http.StatusBadRequest,
			expectedMessage:    "No selected file",
		},
	}

	for testName, tt := range tests {
		tt := tt
		t.Run(testName, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			dataDir := t.TempDir()
			store := mockbilling.NewMockStore(ctrl)
			if tt.prepareFunc != nil {
				tt.prepareFunc(store, dataDir)
			}
			server := newTestServer(t, store, dataDir)

			req := newUploadRequest(t, server.URL+APIUploadEndpoint, tt.field, tt.filename, []byte("PAR1"))
			resp, err := server.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatusCode, resp.StatusCode, "Expected http status code to match")
			assert.Equal(t, map[string]interface{}{"message": tt.expectedMessage}, decodeBody(t, resp.Body))
		})
	}
}

func TestUploadSavesFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dataDir := filepath.Join(t.TempDir(), "data")
	saved := filepath.Join(dataDir, "cur.parquet")
	store := mockbilling.NewMockStore(ctrl)
	store.EXPECT().Ingest(saved).DoAndReturn(func(path string) error {
		data, err := ioutil.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "PAR1-contents", string(data))
		return nil
	})
	server := newTestServer(t, store, dataDir)

	req := newUploadRequest(t, server.URL+APIUploadEndpoint, "file", "cur.parquet", []byte("PAR1-contents"))
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	server := newTestServer(t, mockbilling.NewMockStore(ctrl), t.TempDir())
	resp, err := server.Client().Get(server.URL + "/api/cost/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = server.Client().Get(server.URL + APIUploadEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
