package notes

// Prompt for the drafting model. The line-oriented PERSON/NOTE/IMPORTANCE
// record format is a hard contract: parseDraftRecords only emits a note once
// all three fields have been seen in order.
const draftSystemPrompt = `You are an expert at extracting important information from conversations and creating structured notes.`

const draftUserPrompt = `You are analyzing a conversation transcript. Extract important, memorable information mentioned by or about each participant.

Participants in the call: {participants}

Transcript:
{transcript}

For each participant, extract:
1. Important facts they mentioned (personal updates, projects, plans, etc.)
2. Things they asked about or expressed interest in
3. Commitments or promises made
4. Any other noteworthy information

Format your response as:
PERSON: [Name]
NOTE: [Brief, clear note about something important]
IMPORTANCE: [1-10]

PERSON: [Name]
NOTE: [Another note]
IMPORTANCE: [1-10]

Only include truly important, actionable, or memorable information. Skip small talk.`
