// Package database provides the SQLite asset registry of powerdisco.
//
// The AssetDB stores:
//   - assets and sensors created by discovery campaigns, with their power
//     links and extended attributes
//   - a summary record of every finished campaign
//
// SQLite (via modernc.org/sqlite) keeps the registry in a single file with
// no CGO. The registry is opened from the configured endpoint, which is the
// database file path.
package database
