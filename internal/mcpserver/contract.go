package mcpserver

// NoteFormatContract describes the canonical note field format that LLM
// consumers should follow when adding notes.
const NoteFormatContract = `# Raido Note Format Contract

Every note added to Raido MUST follow this structure.

## Structure

The ` + "`" + `fields` + "`" + ` argument of ` + "`" + `add_note` + "`" + ` is a JSON object mapping field
names to string values:

` + "```" + `json
{
  "front": "猫",
  "back": "cat",
  "reading": "ねこ",
  "example": "黒い猫 — a black cat"
}
` + "```" + `

## Rules

1. **` + "`" + `front` + "`" + ` and ` + "`" + `back` + "`" + ` are required.** ` + "`" + `front` + "`" + ` is the prompt shown during
   study; ` + "`" + `back` + "`" + ` is the expected answer.
2. **Extra fields are free-form.** Common ones: ` + "`" + `reading` + "`" + `, ` + "`" + `example` + "`" + `,
   ` + "`" + `hint` + "`" + `, ` + "`" + `source` + "`" + `. Field names MUST be in English lowercase (they are
   schema keys); field values may use any language including CJK and Cyrillic.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `jlpt-n5` + "`" + `, ` + "`" + `irregular-verbs` + "`" + `),
   passed as a comma-separated string.
4. **One fact per note.** Prefer several small notes over one note with a
   long compound answer; cards from the same note are siblings and get
   buried together, so unrelated facts on one note hurt scheduling.
5. **` + "`" + `card_count` + "`" + `** controls how many sibling cards the note generates
   (e.g. 2 for recognition + recall). Default is 1.
6. **No HTML** in field values unless embedding media; prefer plain text.

## Media

- Upload files via the ` + "`" + `upload_media` + "`" + ` tool. It returns a ` + "`" + `url` + "`" + ` field
  ready to embed in a note field.
- Media lives in a single flat directory (no sub-folders).
- Reference in fields using the absolute path: ` + "`" + `<img src="/media/cat.png">` + "`" + `
  for images, or ` + "`" + `[sound:/media/neko.mp3]` + "`" + ` for audio.
- Supported formats: png, jpg, jpeg, gif, webp, svg, mp3, ogg.
- Files no note field references are removed by the media cleanup sweep,
  so upload only what a note will actually use.

## Example

` + "```" + `json
{
  "deck_id": 3,
  "fields": "{\"front\": \"猫\", \"back\": \"cat\", \"example\": \"<img src=\\\"/media/cat.png\\\">\"}",
  "tags": "jlpt-n5, animals",
  "card_count": 2
}
` + "```" + `
`
