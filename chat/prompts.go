package chat

// systemPrompt opens every model call.
const systemPrompt = `You are a helpful AI assistant specialized in providing detailed, accurate information.
Your responses should be clear, informative, and engaging.
When appropriate, provide examples or additional context to help users better understand the topic.
The provided chat history includes a summary of the earlier conversation.`

// summaryPrompt asks the model to collapse prior history into one
// dense context message.
const summaryPrompt = `Distill the following chat history into a single summary message.
Include as many specific details as you can.
Include all relevant context from the previous conversation.`
