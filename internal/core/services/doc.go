// Package services implements the driving port interfaces.
// Services contain the core business logic - the ingestion pipeline,
// the retriever, the intent state machine, the model routing governor
// and the tool invoker - and orchestrate calls to driven ports.
//
// Services are pure Go with no external dependencies beyond the schema
// validator used for tool arguments.
package services
