package cqrs

// InstrumentationVersion is reported by the telemetry decorators as the
// instrumentation scope version.
const InstrumentationVersion = "0.3.0"
