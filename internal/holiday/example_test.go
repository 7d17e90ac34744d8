package holiday_test

import (
	"fmt"
	"time"

	"hospcal/internal/holiday"
)

func ExampleClassify() {
	info := holiday.Classify(holiday.NewDate(2023, time.January, 2))
	fmt.Println(info.Kind, info.Name)
	// Output: substitute 振替休日
}

func ExampleIsNationalHoliday() {
	d := holiday.NewDate(2024, time.December, 30)
	fmt.Println(holiday.IsNationalHoliday(d), holiday.HolidayName(d) == "")
	// Output: true true
}

func ExampleInMonth() {
	for _, h := range holiday.InMonth(2024, time.May) {
		fmt.Printf("%s: %s\n", h.Date, h.Name)
	}
	// Output:
	// 2024-05-03: 憲法記念日
	// 2024-05-04: みどりの日
	// 2024-05-05: こどもの日
	// 2024-05-06: 振替休日
}
