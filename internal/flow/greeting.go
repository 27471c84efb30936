package flow

// GreetingReply is the static reply to greetings and small talk.
const GreetingReply = "Hello, I am Veazy, VISA Genie! How can I assist you today?"
