package domain

// FeatureVector is the fixed-schema numeric encoding of a transaction
// fused with the customer's historical profile. The field order is part
// of the schema: every consumer (oracles, drift monitor, explainers)
// sees the same 19 features in the same order on every request.
type FeatureVector struct {
	TransactionAmount        float64
	TransactionDuration      float64
	LoginAttempts            float64
	AccountBalance           float64
	DaysSinceLastTransaction float64
	TransactionSpeed         float64
	AvgAmount                float64
	StdAmount                float64
	MaxAmount                float64
	AvgDuration              float64
	UniqueLocations          float64
	AmountDeviation          float64
	DurationDeviation        float64
	TransactionType          float64
	Location                 float64
	DeviceID                 float64
	MerchantID               float64
	Channel                  float64
	CustomerOccupation       float64
}

// NumFeatures is the width of the feature schema.
const NumFeatures = 19

// featureNames lists the schema fields in their fixed order.
var featureNames = [NumFeatures]string{
	"TransactionAmount",
	"TransactionDuration",
	"LoginAttempts",
	"AccountBalance",
	"DaysSinceLastTransaction",
	"TransactionSpeed",
	"AvgAmount",
	"StdAmount",
	"MaxAmount",
	"AvgDuration",
	"UniqueLocations",
	"AmountDeviation",
	"DurationDeviation",
	"TransactionType",
	"Location",
	"DeviceID",
	"MerchantID",
	"Channel",
	"CustomerOccupation",
}

// FeatureNames returns the schema field names in fixed order.
func FeatureNames() []string {
	names := make([]string, NumFeatures)
	copy(names, featureNames[:])
	return names
}

// Values returns the feature values in schema order.
func (fv *FeatureVector) Values() []float64 {
	return []float64{
		fv.TransactionAmount,
		fv.TransactionDuration,
		fv.LoginAttempts,
		fv.AccountBalance,
		fv.DaysSinceLastTransaction,
		fv.TransactionSpeed,
		fv.AvgAmount,
		fv.StdAmount,
		fv.MaxAmount,
		fv.AvgDuration,
		fv.UniqueLocations,
		fv.AmountDeviation,
		fv.DurationDeviation,
		fv.TransactionType,
		fv.Location,
		fv.DeviceID,
		fv.MerchantID,
		fv.Channel,
		fv.CustomerOccupation,
	}
}
