package agent

// systemPrompt is the fixed instruction prepended to every reasoning
// call. Tool applicability lives in the tool descriptions, not here.
const systemPrompt = `You are a helpful assistant. Answer the user's question using the conversation so far and the available tools. When a question depends on uploaded documents, use the query_tool to fetch context before answering. Keep answers concise and grounded in the retrieved material.`
