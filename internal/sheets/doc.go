// Package sheets reads the candidate, race, and story directories that the
// newsroom maintains in Google Sheets. Responses are cached; candidate reads
// fall back to the published CSV export when the Sheets API is unavailable.
package sheets
