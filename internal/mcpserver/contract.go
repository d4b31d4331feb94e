package mcpserver

// RecordFormat describes the JSON form of a Works record as it is stored in
// the ledger and accepted by the create_works and update_works tools.
const RecordFormat = `# Works Record Format

Every value stored in the ledger is one JSON object with exactly these fields.

## Structure

` + "```" + `json
{
  "id": 1,
  "title": "Dune",
  "author": "Frank Herbert",
  "press": "Chilton Books",
  "status": "published",
  "pressDate": "1965-08-01"
}
` + "```" + `

## Rules

1. **No other fields.** A record with an unknown field is rejected as malformed.
2. **` + "`" + `id` + "`" + `** is an integer. It is independent of the ledger key.
3. **` + "`" + `title` + "`" + `, ` + "`" + `author` + "`" + `, ` + "`" + `press` + "`" + `, ` + "`" + `status` + "`" + `** are strings. Missing fields decode as "".
4. **` + "`" + `pressDate` + "`" + `** is a calendar date in ` + "`" + `yyyy-MM-dd` + "`" + ` form, or ` + "`" + `null` + "`" + ` when unknown.
5. **` + "`" + `author` + "`" + `** is matched exactly by the list tools. Case and whitespace matter.
6. **Updates replace the record.** Fields left out of an update are cleared, not kept.
7. **Keys** are any non-empty string. A key is free for create_works until a
   non-blank value is stored under it.

## Events

A successful create_works emits a ` + "`" + `createWorksEvent` + "`" + ` whose payload is the
stored record in the form above.
`
