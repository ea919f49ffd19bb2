package server

import (
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mockbilling "github.com/operator-framework/cost-reporting/pkg/billing/mock"
)

type fakeFetcher struct {
	paths map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(location string) (string, error) {
	f.calls++
	path, ok := f.paths[location]
	if !ok {
		return "", errors.New("no such report")
	}
	return path, nil
}

func TestReingestJob(t *testing.T) {
	tests := map[string]struct {
		source      string
		prepareFunc func(store *mockbilling.MockStore)
		expectErr   bool
	}{
		"fetched and ingested": {
			source: "s3://billing/cur/",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().Ingest("/data/billing/cur/*.parquet").Return(nil)
			},
		},
		"fetch failure skips the ingest": {
			source:    "s3://billing/missing/",
			expectErr: true,
		},
		"ingest failure": {
			source: "s3://billing/cur/",
			prepareFunc: func(store *mockbilling.MockStore) {
				store.EXPECT().Ingest(gomock.Any()).Return(errors.New("bad export"))
			},
			expectErr: true,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mockbilling.NewMockStore(ctrl)
			if tt.prepareFunc != nil {
				tt.prepareFunc(store)
			}
			fetcher := &fakeFetcher{paths: map[string]string{"s3://billing/cur/": "/data/billing/cur/*.parquet"}}
			job := newReingestJob(testLogger, tt.source, fetcher, store)

			err := job.run()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, fetcher.calls)

			// Run only logs failures
			if tt.prepareFunc != nil {
				tt.prepareFunc(store)
			}
			job.Run()
			assert.Equal(t, 2, fetcher.calls)
		})
	}
}

func TestNewReingestScheduler(t *testing.T) {
	job := newReingestJob(testLogger, "s3://billing/cur/", &fakeFetcher{}, nil)

	_, err := newReingestScheduler("0 3 * * *", job)
	require.NoError(t, err)
	_, err = newReingestScheduler("@daily", job)
	require.NoError(t, err)

	_, err = newReingestScheduler("every day", job)
	assert.Error(t, err)
	_, err = newReingestScheduler("", job)
	assert.Error(t, err)
}
