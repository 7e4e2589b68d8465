package services

import (
	"sort"

	"studio-insights/models"
	"studio-insights/utils"
)

var salesLogHeaders = []string{
	"paymentDate", "customerName", "cleanedProduct", "cleanedCategory",
	"paymentMethod", "soldBy", "paymentValue", "discountAmount", "calculatedLocation",
}

// SalesSummary is one row of a grouped sales breakdown.
type SalesSummary struct {
	Key          string
	Revenue      float64
	Transactions int
	AverageValue float64
	Customers    int
	Discount     float64
}

// ProductSummary is the per-product breakdown row.
type ProductSummary = SalesSummary

// saleRevenue is the revenue of one sale: grossRevenue, or paymentValue when
// grossRevenue is absent. Every sales figure goes through it.
func saleRevenue(r models.Record) float64 {
	return Num(r, "grossRevenue", "paymentValue")
}

func productOf(r models.Record) string {
	return Text(r, "cleanedProduct", "paymentItem", "product")
}

func categoryOf(r models.Record) string {
	return Text(r, "cleanedCategory", "category")
}

func memberOf(r models.Record) string {
	return TextOr(r, "", "memberId", "customerEmail", "customerName")
}

// AggregateSales groups sales by label and sums revenue per group, ordered by
// revenue, highest first.
func AggregateSales(records []models.Record, label func(models.Record) string) []SalesSummary {
	groups := GroupByFunc(records, label)
	out := make([]SalesSummary, 0, groups.Len())
	for _, k := range groups.Keys() {
		recs := groups.Get(k)
		s := SalesSummary{Key: k, Transactions: len(recs)}
		members := utils.NewStringSet()
		for _, r := range recs {
			s.Revenue += saleRevenue(r)
			s.Discount += Num(r, "discountAmount")
			members.Add(memberOf(r))
		}
		s.Customers = members.Size()
		s.AverageValue = safeDiv(s.Revenue, float64(s.Transactions))
		out = append(out, s)
	}
	sortDesc(out, func(s SalesSummary) float64 { return s.Revenue })
	return out
}

// AggregateProducts is AggregateSales keyed by product.
func AggregateProducts(records []models.Record) []ProductSummary {
	return AggregateSales(records, productOf)
}

func salesRows(summaries []SalesSummary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Key,
			num(s.Revenue),
			count(s.Transactions),
			num(s.AverageValue),
			count(s.Customers),
		})
	}
	return rows
}

// MonthlyRevenue is one month of the revenue trend. Change is the percent
// delta against the previous month, nil for the first month or when the
// previous month had no revenue.
type MonthlyRevenue struct {
	Month        string
	Revenue      float64
	Transactions int
	Change       *float64
}

// MonthlyTrend buckets sales by payment month, oldest first. Records without
// a parseable date are skipped.
func MonthlyTrend(records []models.Record) []MonthlyRevenue {
	byMonth := GroupByFunc(records, func(r models.Record) string {
		d, ok := Date(r, "paymentDate", "date")
		if !ok {
			return ""
		}
		return MonthKey(d)
	})

	months := make([]string, 0, byMonth.Len())
	for _, k := range byMonth.Keys() {
		if k != "" {
			months = append(months, k)
		}
	}
	sort.Strings(months)

	out := make([]MonthlyRevenue, 0, len(months))
	for i, m := range months {
		recs := byMonth.Get(m)
		mr := MonthlyRevenue{Month: m, Transactions: len(recs)}
		for _, r := range recs {
			mr.Revenue += saleRevenue(r)
		}
		if i > 0 && out[i-1].Revenue != 0 {
			mr.Change = models.Float(utils.Round2(ratio(mr.Revenue-out[i-1].Revenue, out[i-1].Revenue)))
		}
		out = append(out, mr)
	}
	return out
}

func executiveSummary(pc *pageContext) {
	sales := pc.data(models.DatasetSales)
	sessions := pc.data(models.DatasetSessions)
	checkins := pc.data(models.DatasetCheckins)
	clients := pc.data(models.DatasetNewClients)
	leadRecs := pc.data(models.DatasetLeads)
	trend := MonthlyTrend(sales)

	if pc.wantMetrics() {
		sm := CalculateSalesMetrics(sales)
		var revenueChange *float64
		if n := len(trend); n > 1 {
			revenueChange = trend[n-1].Change
		}

		st := summariseSessions(sessions)

		newClients := 0
		for _, c := range clients {
			if isNewClient(c) {
				newClients++
			}
		}
		converted := 0
		for _, l := range leadRecs {
			if isConvertedLead(l) {
				converted++
			}
		}

		pc.addMetrics("Overview",
			NamedValue{"Total Revenue", MetricValue{Value: utils.Round2(sm.TotalRevenue), Change: revenueChange}},
			NamedValue{"Total Transactions", sm.TotalTransactions},
			NamedValue{"Unique Members", distinct(sales, "memberId", "customerEmail", "customerName")},
			NamedValue{"Total Sessions", len(sessions)},
			NamedValue{"Total Check-ins", totalCheckIns(st, checkins)},
			NamedValue{"Avg Fill Rate", utils.Round2(st.FillRate())},
			NamedValue{"New Clients", newClients},
			NamedValue{"Total Leads", len(leadRecs)},
			NamedValue{"Lead Conversion Rate", utils.Round2(ratio(float64(converted), float64(len(leadRecs))))},
		)
	}

	if pc.wantTables() {
		rows := make([][]string, 0, len(trend))
		for _, m := range trend {
			change := ""
			if m.Change != nil {
				change = num(*m.Change)
			}
			rows = append(rows, []string{m.Month, num(m.Revenue), count(m.Transactions), change})
		}
		pc.addSummary("Monthly Revenue Trend", "Trend",
			[]string{"Month", "Revenue", "Transactions", "MoM Change %"}, rows, len(sales))

		pc.addSummary("Revenue by Category", "Categories",
			[]string{"Category", "Revenue", "Transactions", "Avg Value", "Unique Customers"},
			salesRows(AggregateSales(sales, categoryOf)), len(sales))
	}
}

func salesAnalytics(pc *pageContext) {
	sales := pc.data(models.DatasetSales)

	if pc.wantMetrics() {
		pc.addMetrics("Sales", CalculateSalesMetrics(sales).NamedValues()...)
	}
	if !pc.wantTables() {
		return
	}

	headers := []string{"Product", "Revenue", "Transactions", "Avg Value", "Unique Customers"}
	pc.addSummary("Top Products", "Products", headers, salesRows(AggregateProducts(sales)), len(sales))

	headers[0] = "Category"
	pc.addSummary("Sales by Category", "Categories", headers, salesRows(AggregateSales(sales, categoryOf)), len(sales))

	headers[0] = "Payment Method"
	pc.addSummary("Payment Methods", "Payment Methods", headers,
		salesRows(AggregateSales(sales, func(r models.Record) string { return Text(r, "paymentMethod", "paymentMode") })), len(sales))

	headers[0] = "Sold By"
	pc.addSummary("Sales by Associate", "Associates", headers,
		salesRows(AggregateSales(sales, func(r models.Record) string { return Text(r, "soldBy", "associate") })), len(sales))

	pc.addRaw("Sales Transactions", "Transactions", sales, salesLogHeaders)
}

func discounts(pc *pageContext) {
	recs := pc.data(models.DatasetDiscounts)
	if len(recs) == 0 {
		for _, r := range pc.data(models.DatasetSales) {
			if Num(r, "discountAmount") > 0 {
				recs = append(recs, r)
			}
		}
	}

	if pc.wantMetrics() {
		var totalDiscount, totalMRP float64
		for _, r := range recs {
			d := Num(r, "discountAmount")
			totalDiscount += d
			mrp := Num(r, "mrpPostTax", "mrpPreTax")
			if mrp == 0 {
				mrp = saleRevenue(r) + d
			}
			totalMRP += mrp
		}
		pc.addMetrics("Discounts",
			NamedValue{"Promo Transactions", len(recs)},
			NamedValue{"Total Discount", utils.Round2(totalDiscount)},
			NamedValue{"Discount Rate", utils.Round2(ratio(totalDiscount, totalMRP))},
			NamedValue{"Avg Discount", utils.Round2(safeDiv(totalDiscount, float64(len(recs))))},
		)
	}
	if !pc.wantTables() {
		return
	}

	breakdown := func(title, subTab, header string, label func(models.Record) string) {
		summaries := AggregateSales(recs, label)
		sortDesc(summaries, func(s SalesSummary) float64 { return s.Discount })
		rows := make([][]string, 0, len(summaries))
		for _, s := range summaries {
			rows = append(rows, []string{
				s.Key,
				count(s.Transactions),
				num(s.Discount),
				num(safeDiv(s.Discount, float64(s.Transactions))),
				num(s.Revenue),
			})
		}
		pc.addSummary(title, subTab,
			[]string{header, "Transactions", "Discount Amount", "Avg Discount", "Revenue"}, rows, len(recs))
	}

	breakdown("Discount by Product", "Products", "Product", productOf)
	breakdown("Discount by Category", "Categories", "Category", categoryOf)
	breakdown("Discount by Associate", "Associates", "Sold By", func(r models.Record) string { return Text(r, "soldBy", "associate") })
}
