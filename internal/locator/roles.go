package locator

// Role names the part a located element plays in the login or chat UI
type Role string

// Login flow roles
const (
	EmailField    Role = "email_field"
	NextButton    Role = "next_button"
	PasswordField Role = "password_field"
	NoButton      Role = "no_button" // "Stay signed in?" dismissal
	ChatPane      Role = "chat_pane"
)

// Conversation roles
const (
	MessagesContainer Role = "chat_messages_container"
	MessageGroup      Role = "message_group"
	MessageAuthor     Role = "message_author"
	MessageTimestamp  Role = "message_timestamp"
	MessageBody       Role = "message_body"
)

// LoginRoles are the roles the authenticator resolves
var LoginRoles = []Role{EmailField, NextButton, PasswordField, NoButton, ChatPane}

// ScrapeRoles are the roles the conversation scraper resolves
var ScrapeRoles = []Role{MessagesContainer, MessageGroup, MessageAuthor, MessageTimestamp, MessageBody}

// AllRoles returns every role used by the application
func AllRoles() []Role {
	roles := make([]Role, 0, len(LoginRoles)+len(ScrapeRoles))
	roles = append(roles, LoginRoles...)
	return append(roles, ScrapeRoles...)
}

// Teams DOM locators. The Microsoft login page keeps stable ids; the chat UI
// is matched on data-tid attributes where it has them. Update these when
// scraping breaks, or override them from config.
func Teams() Set {
	return Set{
		EmailField:    ID("i0116"),
		NextButton:    ID("idSIButton9"),
		PasswordField: ID("i0118"),
		NoButton:      ID("idBtn_Back"),
		ChatPane:      ID("chat-pane-list"),

		MessagesContainer: CSS(`div[data-tid='message-pane-list-content']`),
		MessageGroup:      CSS(`div[data-tid^='message-']`),
		MessageAuthor:     CSS(`div[data-tid='message-author']`),
		MessageTimestamp:  CSS(`span.timestamp`),
		MessageBody:       CSS(`div.message-body-content`),
	}
}
