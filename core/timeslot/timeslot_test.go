package timeslot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(start, end string) Slot {
	return Slot{Start: MustParse(start), End: MustParse(end)}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "08:30", want: 8*3600 + 30*60},
		{in: "17:45:10", want: 17*3600 + 45*60 + 10},
		{in: "24:00", want: EndOfDay},
		{in: " 09:05 ", want: 9*3600 + 5*60},
		{in: "9:05", wantErr: true},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "lol", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTimeOfDay), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_StringAndJSON(t *testing.T) {
	tod := MustParse("07:05")
	assert.Equal(t, "07:05", tod.String())
	assert.Equal(t, "07:05:09", MustParse("07:05:09").String())

	data, err := json.Marshal(tod)
	require.NoError(t, err)
	assert.Equal(t, `"07:05"`, string(data))

	var back TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"13:20"`), &back))
	assert.Equal(t, MustParse("13:20"), back)
	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &back))
}

func TestTimeOfDay_On(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	date := time.Date(2021, time.March, 10, 15, 4, 5, 0, loc)
	got := MustParse("09:15").On(date)
	assert.Equal(t, time.Date(2021, time.March, 10, 9, 15, 0, 0, loc), got)
	assert.Equal(t, MustParse("15:04:05"), FromTime(date))

	// clocks go forward at 01:00 on 2026-03-29 and back at 02:00 on 2026-10-25
	for _, day := range []int{29, 30} {
		got = MustParse("09:00").On(time.Date(2026, time.March, day, 0, 0, 0, 0, loc))
		assert.Equal(t, 9, got.Hour(), "March %d", day)
	}
	got = MustParse("09:00").On(time.Date(2026, time.October, 25, 0, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, time.October, 25, 9, 0, 0, 0, time.UTC), got.UTC())
	assert.Equal(t, time.Date(2026, time.March, 30, 0, 0, 0, 0, loc), EndOfDay.On(time.Date(2026, time.March, 29, 0, 0, 0, 0, loc)))
}

func TestNewSlot(t *testing.T) {
	_, err := NewSlot(MustParse("10:00"), MustParse("09:00"))
	assert.Equal(t, ErrBackwards, err)

	s, err := ParseSlot("09:00", "09:00")
	require.NoError(t, err)
	assert.True(t, s.Empty())
	assert.Equal(t, time.Duration(0), s.Duration())

	_, err = ParseSlot("09:00", "lol")
	assert.Error(t, err)
}

func TestSlot_Minus(t *testing.T) {
	base := slot("09:00", "12:00")
	tests := []struct {
		name string
		o    Slot
		want []Slot
	}{
		{name: "disjoint before", o: slot("07:00", "08:00"), want: []Slot{base}},
		{name: "touching end", o: slot("12:00", "13:00"), want: []Slot{base}},
		{name: "covers all", o: slot("08:00", "13:00"), want: nil},
		{name: "exact", o: base, want: nil},
		{name: "trim start", o: slot("08:00", "10:00"), want: []Slot{slot("10:00", "12:00")}},
		{name: "trim end", o: slot("11:00", "12:30"), want: []Slot{slot("09:00", "11:00")}},
		{name: "split", o: slot("10:00", "10:30"), want: []Slot{slot("09:00", "10:00"), slot("10:30", "12:00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Minus(tt.o))
		})
	}
}

func TestSet_Add(t *testing.T) {
	set := NewSet(slot("13:00", "14:00"), slot("09:00", "10:00"), slot("10:00", "11:00"), slot("15:00", "15:00"))
	assert.Equal(t, Set{slot("09:00", "11:00"), slot("13:00", "14:00")}, set)

	set = set.Add(slot("10:30", "13:30"))
	assert.Equal(t, Set{slot("09:00", "14:00")}, set)

	set = set.Add(slot("16:00", "17:00")).Add(slot("08:00", "08:30"))
	assert.Equal(t, Set{slot("08:00", "08:30"), slot("09:00", "14:00"), slot("16:00", "17:00")}, set)
}

func TestSet_Subtract(t *testing.T) {
	day := NewSet(slot("08:30", "17:30"))

	free := day.Subtract(slot("09:00", "10:00")).
		Subtract(slot("09:30", "11:00")).
		Subtract(slot("12:00", "13:00")).
		Subtract(slot("17:00", "18:00")).
		Subtract(slot("07:00", "08:00"))
	assert.Equal(t, Set{slot("08:30", "09:00"), slot("11:00", "12:00"), slot("13:00", "17:00")}, free)
	assert.Equal(t, 5*time.Hour+30*time.Minute, free.Duration())

	assert.True(t, free.Subtract(slot("00:00", "24:00")).Empty())
	assert.Equal(t, free, free.Subtract(slot("10:00", "10:00")))
}

func TestSet_SubtractNeverGrows(t *testing.T) {
	day := NewSet(slot("08:00", "18:00"))
	busy := []Slot{slot("08:15", "09:05"), slot("09:05", "09:50"), slot("11:20", "12:10"), slot("13:45", "14:30")}
	prev := day.Duration()
	for _, b := range busy {
		day = day.Subtract(b)
		assert.LessOrEqual(t, int64(day.Duration()), int64(prev))
		prev = day.Duration()
		for i := 1; i < len(day); i++ {
			assert.Less(t, int(day[i-1].End), int(day[i].Start), "slots must stay disjoint and sorted")
		}
	}
	assert.Equal(t, NewSet(slot("08:00", "08:15"), slot("09:50", "11:20"), slot("12:10", "13:45"), slot("14:30", "18:00")),
		day)
	assert.Equal(t, day, day.SubtractSet(nil))
	assert.True(t, day.SubtractSet(NewSet(slot("00:00", "24:00"))).Empty())
}

func TestSet_AtLeast(t *testing.T) {
	set := NewSet(slot("08:00", "08:20"), slot("09:00", "10:00"), slot("11:00", "11:30"))
	assert.Equal(t, Set{slot("09:00", "10:00"), slot("11:00", "11:30")}, set.AtLeast(30*time.Minute))
	assert.Equal(t, "08:00 - 08:20, 09:00 - 10:00, 11:00 - 11:30", set.String())
}
