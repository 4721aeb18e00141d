package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dorm-occupancy-backend/config"
	"dorm-occupancy-backend/internal/api"
	"dorm-occupancy-backend/internal/db"
	"dorm-occupancy-backend/internal/metrics"
	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/notification"
	"dorm-occupancy-backend/internal/occupancy"
	"dorm-occupancy-backend/internal/store"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type app struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

// newApp wires the full stack on an in-memory sqlite database.
func newApp(t *testing.T, name string) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)

	male := model.GenderPolicyMale
	require.NoError(t, gormDB.Create(&model.Building{ID: 1, Code: "A", Name: "Anggrek", GenderPolicy: &male}).Error)
	require.NoError(t, gormDB.Create(&model.Floor{ID: 1, BuildingID: 1, Number: 2}).Error)
	require.NoError(t, gormDB.Create(&model.Room{ID: 1, FloorID: 1, Code: "201"}).Error)
	require.NoError(t, gormDB.Create(&model.Room{ID: 2, FloorID: 1, Code: "202"}).Error)
	require.NoError(t, gormDB.Create(&model.Bed{ID: 1, RoomID: 1, Code: "A-2-201-A", Position: 1, Status: model.BedStatusActive}).Error)
	require.NoError(t, gormDB.Create(&model.Bed{ID: 2, RoomID: 2, Code: "A-2-202-A", Position: 1, Status: model.BedStatusActive}).Error)
	for i := int64(1); i <= 8; i++ {
		require.NoError(t, gormDB.Create(&model.Occupant{ID: i, NIK: fmt.Sprintf("50%02d", i), Name: fmt.Sprintf("Worker %d", i), Gender: model.GenderMale}).Error)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := notification.NewWorkerPool(2, 64, gormDB)
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		sqlDB.Close()
	})

	reg := prometheus.NewRegistry()
	svc := occupancy.NewService(store.NewGormStore(gormDB),
		occupancy.WithNotifier(pool),
		occupancy.WithMetrics(metrics.New(reg)),
		occupancy.WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
		occupancy.WithConflictRetries(2),
	)
	router := api.NewRouter(api.NewHandler(svc), config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTL:        time.Minute,
	}, reg, nil)
	return &app{t: t, db: gormDB, router: router}
}

func (a *app) call(method, path string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderActorID, "op-1")
	req.Header.Set(api.HeaderActorName, "Front desk")
	req.Header.Set(api.HeaderActorRole, "OPERATOR")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestOccupancyLifecycle(t *testing.T) {
	a := newApp(t, "lifecycle")

	// Assign, check in, move to the other room, then leave early.
	status, env := a.call(http.MethodPost, "/api/occupancies", gin.H{
		"occupantId": 1, "bedId": 1, "checkInDate": "2024-03-01", "checkOutDate": "2024-03-31",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var o model.Occupancy
	require.NoError(t, json.Unmarshal(env.Data, &o))

	status, env = a.call(http.MethodPost, fmt.Sprintf("/api/occupancies/%d/check-in", o.ID), nil)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = a.call(http.MethodPost, fmt.Sprintf("/api/occupancies/%d/transfer", o.ID), gin.H{
		"toBedId": 2, "effectiveDate": "2024-03-01", "reason": "leaking roof",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var moved occupancy.TransferResult
	require.NoError(t, json.Unmarshal(env.Data, &moved))

	status, env = a.call(http.MethodPost, fmt.Sprintf("/api/occupancies/%d/check-out", moved.Created.ID), gin.H{
		"forced": true, "reason": "contract ended",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	// Database state.
	var rows []model.Occupancy
	require.NoError(t, a.db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, model.StatusCheckedOut, rows[0].Status)
	require.NotNil(t, rows[0].TransferredToID)
	assert.Equal(t, rows[1].ID, *rows[0].TransferredToID)
	assert.Equal(t, model.StatusCheckedOut, rows[1].Status)
	assert.Equal(t, int64(2), rows[1].BedID)
	assert.Equal(t, int64(2), rows[1].RoomID)

	// Both rooms show the transfer.
	for _, room := range []int{1, 2} {
		status, env = a.call(http.MethodGet, fmt.Sprintf("/api/rooms/%d/history?action=TRANSFER", room), nil)
		require.Equal(t, http.StatusOK, status)
		var page occupancy.HistoryPage
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, int64(1), page.Total, "room %d", room)
	}

	var logs int64
	require.NoError(t, a.db.Model(&model.OccupancyLog{}).Count(&logs).Error)
	assert.Equal(t, int64(4), logs)

	// Notifications are written asynchronously, one per committed change.
	assert.Eventually(t, func() bool {
		var n int64
		a.db.Model(&model.Notification{}).Count(&n)
		return n == 4
	}, 2*time.Second, 20*time.Millisecond)

	var assigned model.Notification
	require.NoError(t, a.db.Where("action = ?", model.ActionAssign).First(&assigned).Error)
	assert.Contains(t, assigned.Message, "bed A-2-201-A")
}

func TestConcurrentAssignsOnOneBed(t *testing.T) {
	a := newApp(t, "concurrent")

	const callers = 8
	statuses := make([]int, callers)
	codes := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = a.callQuiet(http.MethodPost, "/api/occupancies", gin.H{
				"occupantId": i + 1, "bedId": 1, "checkInDate": "2024-03-10", "checkOutDate": "2024-03-12",
			}, &codes[i])
		}(i)
	}
	wg.Wait()

	ok := 0
	for i, s := range statuses {
		if s == http.StatusOK {
			ok++
			continue
		}
		assert.Equal(t, http.StatusConflict, s, "caller %d", i)
	}
	assert.Equal(t, 1, ok)

	var active int64
	require.NoError(t, a.db.Model(&model.Occupancy{}).Where("bed_id = ? AND status IN ?", 1,
		[]model.OccupancyStatus{model.StatusReserved, model.StatusCheckedIn}).Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

// callQuiet is call without test assertions, safe to use from several goroutines.
func (a *app) callQuiet(method, path string, body any, code *int) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderActorID, "op-1")
	req.Header.Set(api.HeaderActorRole, "OPERATOR")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		return w.Code, err
	}
	*code = env.Code
	return w.Code, nil
}
