package service

import (
	"testing"
	"time"

	"tillpoint/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func testBranch(pettyCash int64, hours model.Schedule) *model.Branch {
	return &model.Branch{
		Name:            "Test Branch",
		PettyCashAmount: dec(pettyCash),
		OperatingHours:  hours,
	}
}

func TestReconcileDiscrepancyIsDeclaredMinusExpected(t *testing.T) {
	declared := model.ChannelTotals{Cash: dec(14800), Card: dec(8000), QR: dec(3000), Transfer: dec(500)}
	expected := model.ChannelTotals{Cash: dec(15000), Card: dec(8000), QR: dec(2900), Transfer: dec(500)}

	r := Reconcile(declared, expected, testBranch(0, nil), time.Now())

	assert.True(t, r.Discrepancy.Cash.Equal(dec(-200)), "cash: %s", r.Discrepancy.Cash)
	assert.True(t, r.Discrepancy.Card.IsZero())
	assert.True(t, r.Discrepancy.QR.Equal(dec(100)))
	assert.True(t, r.Discrepancy.Transfer.IsZero())
	assert.True(t, r.TotalDiscrepancy.Equal(dec(-100)))
}

func TestReconcilePettyCashWarningBelowThreshold(t *testing.T) {
	declared := model.ChannelTotals{Cash: dec(4000)}
	r := Reconcile(declared, model.ChannelTotals{}, testBranch(5000, nil), time.Now())

	require.NotNil(t, r.PettyCash)
	assert.True(t, r.PettyCash.Deficit.Equal(dec(1000)))
	assert.True(t, r.PettyCash.PettyCashRequired.Equal(dec(5000)))
}

func TestReconcileNoPettyCashWarningAtExactThreshold(t *testing.T) {
	declared := model.ChannelTotals{Cash: dec(5000)}
	r := Reconcile(declared, model.ChannelTotals{}, testBranch(5000, nil), time.Now())
	assert.Nil(t, r.PettyCash)
}

func TestReconcileAfterHoursWarningOutsideSchedule(t *testing.T) {
	// Monday 08:00-18:00 only
	hours := model.Schedule{"1": {{Open: "08:00", Close: "18:00"}}}

	// 2026-08-31 is a Monday
	inside := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 31, 23, 30, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, Reconcile(model.ChannelTotals{}, model.ChannelTotals{}, testBranch(0, hours), inside).AfterHours)

	r := Reconcile(model.ChannelTotals{}, model.ChannelTotals{}, testBranch(0, hours), late)
	require.NotNil(t, r.AfterHours)
	assert.Equal(t, "Monday", r.AfterHours.Weekday)

	assert.NotNil(t, Reconcile(model.ChannelTotals{}, model.ChannelTotals{}, testBranch(0, hours), sunday).AfterHours)
}

func TestReconcileEmptyScheduleNeverWarnsAfterHours(t *testing.T) {
	r := Reconcile(model.ChannelTotals{}, model.ChannelTotals{}, testBranch(0, nil), time.Now())
	assert.Nil(t, r.AfterHours)
}

func TestScheduleCoversSplitShifts(t *testing.T) {
	hours := model.Schedule{"2": {
		{Open: "09:00", Close: "13:00"},
		{Open: "17:00", Close: "21:00"},
	}}

	// 2026-09-01 is a Tuesday
	morning := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	siesta := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 9, 1, 20, 59, 0, 0, time.UTC)

	assert.True(t, hours.Covers(morning))
	assert.False(t, hours.Covers(siesta))
	assert.True(t, hours.Covers(evening))
}
