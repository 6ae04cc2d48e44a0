// export_test.go exports private functions for white-box testing.
package logger

// Exported for testing.
var (
	CollectErrorChain = collectErrorChain
	FormatErrorChain  = formatErrorChain
)
