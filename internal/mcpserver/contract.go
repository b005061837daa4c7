package mcpserver

// EntryFormatContract describes the canonical entry text format that
// LLM consumers should follow when writing journal entries.
const EntryFormatContract = `# Dagaz Entry Format Contract

Every journal entry stored in Dagaz MUST follow this structure.

## Structure

` + "```" + `markdown
# Tasks
[ ] a pending task (the marker is optional, plain lines are pending)
[x] a completed task
[>] a task migrated to another day
[<] a task scheduled into the calendar

# Events
met with the team

# Notes
ordinary observation

# Priority
the one thing that matters today

# Inspiration
a quote worth keeping

# Insights
what I learned

# Missteps
what went wrong
` + "```" + `

## Rules

1. **One file per day.** Entries are addressed by date (YYYY-MM-DD); there
   is no other document identity.
2. **Seven typed sections:** ` + "`" + `Tasks` + "`" + `, ` + "`" + `Events` + "`" + `, ` + "`" + `Notes` + "`" + `, ` + "`" + `Priority` + "`" + `,
   ` + "`" + `Inspiration` + "`" + `, ` + "`" + `Insights` + "`" + `, ` + "`" + `Missteps` + "`" + `. Each is a ` + "`" + `# Title` + "`" + ` header
   followed by one bullet per line. Header casing is normalized on save;
   unknown headers are skipped with a warning, their lines dropped.
3. **Only tasks carry a state marker.** ` + "`" + `[ ]` + "`" + ` or no marker is pending,
   ` + "`" + `[x]` + "`" + ` completed, ` + "`" + `[>]` + "`" + ` migrated, ` + "`" + `[<]` + "`" + ` scheduled. Markers on other
   section lines stay literal content.
4. **Saving normalizes.** Sections come back in canonical order with
   canonical casing, empty sections dropped, one blank line between
   sections. Writing empty content removes the day entirely.
5. **Cross-references** use double brackets around a date:
   ` + "`" + `[[2026-08-21]]` + "`" + `, or ` + "`" + `[[follows:2026-08-20]]` + "`" + ` for a typed edge. Targets
   that do not parse as dates are ignored.
6. **Bullet IDs are positional** (` + "`" + `b0` + "`" + `, ` + "`" + `b1` + "`" + `, ...) in normalized order.
   Rewriting an entry can renumber them, so re-read before acting on an ID.
7. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
# Tasks
[x] book flights
call the dentist

# Events
lunch with Maria

# Notes
started reading the new paper, continues [[2026-08-20]]
` + "```" + `
`
