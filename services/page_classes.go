package services

import (
	"studio-insights/models"
	"studio-insights/utils"
)

var sessionLogHeaders = []string{
	"date", "dayOfWeek", "time", "cleanedClass", "trainerName", "checkedInCount", "capacity", "totalPaid", "location",
}

// SessionStats aggregates a set of class sessions.
type SessionStats struct {
	Key           string
	Sessions      int
	Empty         int
	CheckIns      float64
	Capacity      float64
	Booked        float64
	LateCancelled float64
	Revenue       float64
}

// FillRate is check-ins over capacity, in percent.
func (s SessionStats) FillRate() float64 { return ratio(s.CheckIns, s.Capacity) }

// ShowUpRate is check-ins over bookings, in percent.
func (s SessionStats) ShowUpRate() float64 { return ratio(s.CheckIns, s.Booked) }

// UtilizationRate is the share of sessions with at least one check-in.
func (s SessionStats) UtilizationRate() float64 {
	return ratio(float64(s.Sessions-s.Empty), float64(s.Sessions))
}

// ClassSize is the mean check-ins per non-empty session.
func (s SessionStats) ClassSize() float64 {
	return safeDiv(s.CheckIns, float64(s.Sessions-s.Empty))
}

func summariseSessions(records []models.Record) SessionStats {
	st := SessionStats{Key: AllLocations, Sessions: len(records)}
	for _, r := range records {
		in := Num(r, "checkedInCount", "checkedIn")
		if in == 0 {
			st.Empty++
		}
		st.CheckIns += in
		st.Capacity += Num(r, "capacity")
		st.Booked += Num(r, "bookedCount", "booked")
		st.LateCancelled += Num(r, "lateCancelledCount", "lateCancelled")
		st.Revenue += Num(r, "totalPaid", "revenue")
	}
	return st
}

// SessionBreakdown groups sessions by label, ordered by check-ins, highest first.
func SessionBreakdown(records []models.Record, label func(models.Record) string) []SessionStats {
	groups := GroupByFunc(records, label)
	out := make([]SessionStats, 0, groups.Len())
	for _, k := range groups.Keys() {
		st := summariseSessions(groups.Get(k))
		st.Key = k
		out = append(out, st)
	}
	sortDesc(out, func(s SessionStats) float64 { return s.CheckIns })
	return out
}

func classOf(r models.Record) string {
	return Text(r, "cleanedClass", "classType", "className")
}

func trainerOf(r models.Record) string {
	return Text(r, "trainerName", "teacherName", "instructor")
}

// checkedInRecords counts check-in rows that record an actual visit. Rows
// without a checkedIn field count as visits.
func checkedInRecords(records []models.Record) int {
	n := 0
	for _, r := range records {
		if !Has(r, "checkedIn") || Flag(r, "checkedIn") {
			n++
		}
	}
	return n
}

// totalCheckIns prefers the check-in log when one was supplied and falls
// back to the per-session counts.
func totalCheckIns(st SessionStats, checkins []models.Record) float64 {
	if len(checkins) > 0 {
		return float64(checkedInRecords(checkins))
	}
	return st.CheckIns
}

func attendanceRows(stats []SessionStats) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Key,
			count(s.Sessions),
			num(s.CheckIns),
			num(s.Capacity),
			num(s.FillRate()),
		})
	}
	return rows
}

type trainerPay struct {
	name      string
	sessions  float64
	empty     float64
	nonEmpty  float64
	customers float64
	paid      float64
}

func (t trainerPay) classSize() float64 { return safeDiv(t.customers, t.nonEmpty) }
func (t trainerPay) utilization() float64 {
	return ratio(t.nonEmpty, t.sessions)
}

func payFor(name string, records []models.Record) trainerPay {
	t := trainerPay{name: name}
	for _, r := range records {
		sessions := Num(r, "totalSessions")
		empty := Num(r, "totalEmptySessions")
		t.sessions += sessions
		t.empty += empty
		if Has(r, "totalNonEmptySessions") {
			t.nonEmpty += Num(r, "totalNonEmptySessions")
		} else {
			t.nonEmpty += sessions - empty
		}
		t.customers += Num(r, "totalCustomers")
		t.paid += Num(r, "totalPaid")
	}
	return t
}

func trainerPerformance(pc *pageContext) {
	payroll := pc.data(models.DatasetPayroll)
	byTrainer := GroupByFunc(payroll, trainerOf)

	trainers := make([]trainerPay, 0, byTrainer.Len())
	for _, k := range byTrainer.Keys() {
		trainers = append(trainers, payFor(k, byTrainer.Get(k)))
	}
	sortDesc(trainers, func(t trainerPay) float64 { return t.paid })

	if pc.wantMetrics() {
		total := payFor(AllLocations, payroll)
		pc.addMetrics("Trainers",
			NamedValue{"Total Trainers", distinct(payroll, "teacherName", "trainerName", "instructor")},
			NamedValue{"Total Sessions", total.sessions},
			NamedValue{"Total Customers", total.customers},
			NamedValue{"Total Paid", utils.Round2(total.paid)},
			NamedValue{"Attendees per Class", utils.Round2(total.classSize())},
			NamedValue{"Utilization Rate", utils.Round2(total.utilization())},
		)
	}

	rows := make([][]string, 0, len(trainers))
	for _, t := range trainers {
		rows = append(rows, []string{
			t.name,
			num(t.sessions),
			num(t.empty),
			num(t.customers),
			num(t.paid),
			num(t.classSize()),
			num(t.utilization()),
		})
	}
	pc.addSummary("Trainer Summary", "Trainers",
		[]string{"Trainer", "Sessions", "Empty Sessions", "Customers", "Paid", "Attendees per Class", "Utilization Rate"},
		rows, len(payroll))
}

func classAttendance(pc *pageContext) {
	sessions := pc.data(models.DatasetSessions)
	checkins := pc.data(models.DatasetCheckins)

	if pc.wantMetrics() {
		st := summariseSessions(sessions)
		pc.addMetrics("Attendance",
			NamedValue{"Total Sessions", st.Sessions},
			NamedValue{"Total Check-ins", totalCheckIns(st, checkins)},
			NamedValue{"Total Capacity", st.Capacity},
			NamedValue{"Fill Rate", utils.Round2(st.FillRate())},
			NamedValue{"Show-up Rate", utils.Round2(st.ShowUpRate())},
			NamedValue{"Utilization Rate", utils.Round2(st.UtilizationRate())},
			NamedValue{"Late Cancellations", st.LateCancelled},
			NamedValue{"Check-in Records", len(checkins)},
		)
	}
	if !pc.wantTables() {
		return
	}

	headers := []string{"Time Slot", "Sessions", "Check-ins", "Capacity", "Fill Rate"}
	pc.addSummary("Attendance by Time Slot", "Time Slots", headers,
		attendanceRows(SessionBreakdown(sessions, func(r models.Record) string { return Text(r, "time", "classTime") })),
		len(sessions))

	headers[0] = "Day"
	pc.addSummary("Attendance by Day", "Days", headers,
		attendanceRows(SessionBreakdown(sessions, func(r models.Record) string { return Text(r, "dayOfWeek", "day") })),
		len(sessions))
}

func classFormats(pc *pageContext) {
	sessions := pc.data(models.DatasetSessions)
	formats := SessionBreakdown(sessions, classOf)

	if pc.wantMetrics() {
		top := Unknown
		if len(formats) > 0 {
			top = formats[0].Key
		}
		pc.addMetrics("Formats",
			NamedValue{"Total Formats", len(formats)},
			NamedValue{"Top Format", top},
		)
	}

	rows := make([][]string, 0, len(formats))
	for _, f := range formats {
		rows = append(rows, []string{
			f.Key,
			count(f.Sessions),
			num(f.CheckIns),
			num(f.ClassSize()),
			num(f.FillRate()),
			num(f.Revenue),
		})
	}
	pc.addSummary("Format Performance", "Formats",
		[]string{"Format", "Sessions", "Check-ins", "Attendees per Class", "Fill Rate", "Revenue"},
		rows, len(sessions))
}

func sessions(pc *pageContext) {
	recs := pc.data(models.DatasetSessions)

	if pc.wantMetrics() {
		st := summariseSessions(recs)
		pc.addMetrics("Sessions",
			NamedValue{"Total Sessions", st.Sessions},
			NamedValue{"Empty Sessions", st.Empty},
		)
	}
	if !pc.wantTables() {
		return
	}

	byTrainer := SessionBreakdown(recs, trainerOf)
	rows := make([][]string, 0, len(byTrainer))
	for _, s := range byTrainer {
		rows = append(rows, []string{
			s.Key,
			count(s.Sessions),
			count(s.Empty),
			num(s.CheckIns),
			num(s.FillRate()),
			num(s.Revenue),
		})
	}
	pc.addSummary("Sessions by Trainer", "Trainers",
		[]string{"Trainer", "Sessions", "Empty Sessions", "Check-ins", "Fill Rate", "Revenue"},
		rows, len(recs))
	pc.addRaw("Session Log", "Log", recs, sessionLogHeaders)
}

func lateCancellations(pc *pageContext) {
	recs := pc.data(models.DatasetLateCancellations)

	pc.addMetrics("Late Cancellations",
		NamedValue{"Total Late Cancellations", len(recs)},
		NamedValue{"Unique Members", distinct(recs, "memberId", "email", "customerName")},
	)
	if !pc.wantTables() {
		return
	}

	breakdown := []struct {
		title, subTab, header string
		label                 func(models.Record) string
	}{
		{"Late Cancellations by Class", "Classes", "Class", classOf},
		{"Late Cancellations by Trainer", "Trainers", "Trainer", trainerOf},
		{"Late Cancellations by Day", "Days", "Day", func(r models.Record) string { return Text(r, "dayOfWeek", "day") }},
	}
	for _, b := range breakdown {
		pc.addSummary(b.title, b.subTab, []string{b.header, "Late Cancellations", "Share %"}, countBy(recs, b.label), len(recs))
	}
}
