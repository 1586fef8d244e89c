package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestQueryLogger(t *testing.T) {
	ctx := context.Background()
	query := func() (string, int64) { return "SELECT * FROM food_items", 2 }

	tests := []struct {
		name    string
		level   zerolog.Level
		begin   time.Time
		err     error
		want    []string
		wantOff bool
	}{
		{
			name:  "failed statement",
			level: zerolog.InfoLevel,
			begin: time.Now(),
			err:   errors.New("no such table: food_items"),
			want:  []string{`"level":"warn"`, `"component":"gorm"`, "no such table", `"sql":"SELECT * FROM food_items"`},
		},
		{
			name:  "slow statement",
			level: zerolog.InfoLevel,
			begin: time.Now().Add(-time.Second),
			want:  []string{`"level":"warn"`, `"slow":true`, `"rows":2`},
		},
		{
			name:    "fast statement below debug",
			level:   zerolog.InfoLevel,
			begin:   time.Now(),
			wantOff: true,
		},
		{
			name:    "record not found is not a warning",
			level:   zerolog.InfoLevel,
			begin:   time.Now(),
			err:     gorm.ErrRecordNotFound,
			wantOff: true,
		},
		{
			name:  "fast statement at debug",
			level: zerolog.DebugLevel,
			begin: time.Now(),
			want:  []string{`"level":"debug"`, `"message":"query"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewLogger(zerolog.New(&buf).Level(tt.level))

			l.Trace(ctx, tt.begin, query, tt.err)

			if tt.wantOff {
				assert.Empty(t, buf.String())
				return
			}
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestQueryLoggerSilent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf)).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("boom"))
	l.Warn(context.Background(), "ignored %d", 1)

	assert.Empty(t, buf.String())
}

func TestOpenLogsThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	gormDB, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", zerolog.New(&buf))
	require.NoError(t, err)

	err = gormDB.Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	assert.Contains(t, buf.String(), "missing_table")
	assert.Contains(t, buf.String(), `"component":"gorm"`)
}
