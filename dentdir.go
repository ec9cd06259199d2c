// Package dentdir builds a local directory of dental clinics.
// A location string is expanded into search queries, each query is sent to
// a generative search backend, and the returned candidates are deduplicated
// into a persisted list that the user annotates and exports.
//
// This package contains domain types, interfaces and pure policies.
// Implementations live in subdirectories named after their primary
// dependency (e.g., sqlite/, gemini/, redis/).
package dentdir
