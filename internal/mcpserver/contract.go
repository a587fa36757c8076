package mcpserver

// MeetingFormat describes the layout of the meeting notes written by the
// sync, for LLM consumers reading them.
const MeetingFormat = `# Meeting Note Format

Every synced meeting is one Markdown file under the sync directory.

## Structure

` + "```" + `markdown
---
category: "[[Meetings]]"
type:
date: "2025-01-20 09:00"             # scheduled start, local time
dateEnd: "2025-01-20 09:30"
noteStarted: "2025-01-20 09:02"
noteEnded: "2025-01-20 09:45"        # last remote update that was synced
org:
  - "[[Acme]]"
loc:
  - "[[Zoom]]"
people:                              # attendees as wikilinks, self excluded
  - "[[Jane Doe]]"
topics:
tags:
  - meeting
granola_id: 3f2c...                  # always present; the meeting's identity
title: Weekly standup
granola_url: "https://notes.granola.ai/d/3f2c..."
---

# Weekly standup

## My Notes
...

## Enhanced Notes
...

## Transcript
**Me** *(00:00:05)*: ...
` + "```" + `

## Rules

1. ` + "`" + `granola_id` + "`" + ` identifies a meeting. File names and folders may change; the id does not.
2. Header fields other than ` + "`" + `granola_id` + "`" + ` and ` + "`" + `noteEnded` + "`" + ` are optional and may be edited by the user.
   A later sync replaces only ` + "`" + `noteEnded` + "`" + ` and the body when the remote note changed.
3. Sections appear only when they have content. Attachments are embedded as ` + "`" + `![[file]]` + "`" + ` links.
4. Each day's journal note may list that day's meetings under a ` + "`" + `## Meetings` + "`" + ` heading as
   ` + "`" + `- HH:mm [[path|title]]` + "`" + ` lines.
`
