package workingcopy

// SortVersionsDescending exports sortVersionsDescending for testing.
var SortVersionsDescending = sortVersionsDescending //nolint:gochecknoglobals // test export

// Redact exports redact for testing.
var Redact = redact //nolint:gochecknoglobals // test export

// ProxyFor exports proxyFor for testing.
var ProxyFor = proxyFor //nolint:gochecknoglobals // test export
