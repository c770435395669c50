package filetypes

const (
	PaymentRecordSchema = "PAYMENT_RECORD"
	WarrantPaidSchema   = "WARRANT_PAID"
)

// PaymentRecord is the outbound payment line sent to the treasury.
func PaymentRecord() *Schema {
	return &Schema{
		Name:    PaymentRecordSchema,
		Version: "1.0",
		Fields: []Field{
			{Name: "recordType", Length: 2},
			{Name: "providerId", Length: 10},
			{Name: "recipientId", Length: 10},
			{Name: "county", Length: 2, Numeric: true},
			{Name: "payPeriod", Length: 6},
			{Name: "hours", Length: 6, Numeric: true},
			{Name: "amountCents", Length: 10, Numeric: true},
		},
	}
}

// WarrantPaid is the inbound paid-warrant feed line.
func WarrantPaid() *Schema {
	return &Schema{
		Name:    WarrantPaidSchema,
		Version: "1.0",
		Fields: []Field{
			{Name: "warrantNumber", Length: 10},
			{Name: "providerId", Length: 10},
			{Name: "status", Length: 1},
			{Name: "paidDate", Length: 8},
			{Name: "amountCents", Length: 10, Numeric: true},
		},
	}
}

// DefaultRegistry carries every schema the pipelines speak.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(PaymentRecord())
	_ = r.Register(WarrantPaid())
	return r
}
