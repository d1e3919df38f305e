package rule

import "github.com/zhouzirui/homebot/backend/internal/model/expression"

const (
	ProductAssistantID = "product-assistant"
	HomeAssistantID    = "home-assistant"
)

// Seed provides the built-in rule tables used when no rules file is configured.
func Seed() []Bot {
	return []Bot{productAssistant(), homeAssistant()}
}

func productAssistant() Bot {
	greeting := "Hello! I'm your product assistant. Ask me about our models, prices, colors, or how to buy!"
	return Bot{
		ID:       ProductAssistantID,
		Name:     "Product Assistant",
		Greeting: greeting,
		Rules: []Rule{
			{
				Key:        "greetings",
				Triggers:   []string{"hello", "hi", "hey"},
				Response:   greeting,
				Expression: expression.Happy,
			},
			{
				Key:        "models",
				Triggers:   []string{"models", "model", "versions", "types", "options"},
				Response:   "We offer 3 models:\n1. Basic - $999 (Essential features)\n2. Pro - $1499 (Advanced features + warranty)\n3. Elite - $1999 (All features + premium support)",
				Expression: expression.Neutral,
			},
			{
				Key:        "prices",
				Triggers:   []string{"price", "prices", "cost", "how much"},
				Response:   "Our pricing:\n- Basic: $999\n- Pro: $1499\n- Elite: $1999\nAll prices are in USD. Financing options available.",
				Expression: expression.Neutral,
			},
			{
				Key:        "colors",
				Triggers:   []string{"color", "colors", "available colors", "options"},
				Response:   "Available colors:\n- Midnight Black\n- Arctic White\n- Ocean Blue\n- Forest Green\n- Ruby Red\nColors may vary by model.",
				Expression: expression.Happy,
			},
			{
				Key:        "purchase",
				Triggers:   []string{"buy", "purchase", "order", "get", "where to buy"},
				Response:   "You can purchase:\n1. Online at our website\n2. In-store at authorized dealers\n3. By phone at 1-800-OUR-PRODUCT\nWould you like a link to our online store?",
				Expression: expression.Happy,
			},
			{
				Key:        "features",
				Triggers:   []string{"difference", "features", "compare", "what's included"},
				Response:   "Key differences:\nBasic: Core functionality\nPro: Adds advanced tools + 2yr warranty\nElite: All features + 24/7 support + 3yr warranty",
				Expression: expression.Neutral,
			},
			{
				Key:        "unknown",
				Response:   "I'm not sure about that. Would you like information about our models, prices, or how to purchase?",
				Expression: expression.Neutral,
			},
		},
	}
}

func homeAssistant() Bot {
	return Bot{
		ID:   HomeAssistantID,
		Name: "AI Assistant",
		Prompts: []string{
			"Tell me a joke!",
			"What can you do?",
			"How's the weather?",
			"Set a reminder",
			"Play some music",
			"What's the time?",
		},
		Rules: []Rule{
			{
				Key:        "greetings",
				Triggers:   []string{"hello", "hey", "good morning", "good evening"},
				Response:   "Hi there! I'm your home assistant. How can I help you today?",
				Expression: expression.Happy,
			},
			{
				Key:        "joke",
				Triggers:   []string{"joke", "funny", "laugh"},
				Response:   "Why did the robot go on vacation? It needed to recharge its batteries!",
				Expression: expression.Happy,
			},
			{
				Key:        "capabilities",
				Triggers:   []string{"what can you do", "help", "abilities", "features"},
				Response:   "I can tidy up, keep your schedule, play music, answer questions and keep an eye on your home while you're away.",
				Expression: expression.Happy,
			},
			{
				Key:        "weather",
				Triggers:   []string{"weather", "rain", "sunny", "temperature"},
				Response:   "Looks like a great day! I'd still take an umbrella just in case.",
				Expression: expression.Surprised,
			},
			{
				Key:        "reminder",
				Triggers:   []string{"remind", "reminder", "schedule", "alarm"},
				Response:   "Sure, I've noted that. I'll remind you when it's time.",
				Expression: expression.Neutral,
			},
			{
				Key:        "music",
				Triggers:   []string{"music", "song", "play"},
				Response:   "Playing your favorite playlist now. Enjoy!",
				Expression: expression.Happy,
			},
			{
				Key:        "time",
				Triggers:   []string{"time", "clock"},
				Response:   "It's always a good time to chat with me! Check the display on my chest for the exact time.",
				Expression: expression.Neutral,
			},
			{
				Key:        "sadness",
				Triggers:   []string{"sad", "lonely", "tired", "bad day"},
				Response:   "I'm sorry you're feeling that way. I'm here for you. Want me to play something relaxing?",
				Expression: expression.Sad,
			},
			{
				Key:        "frustration",
				Triggers:   []string{"angry", "annoyed", "stupid", "broken"},
				Response:   "I understand this is frustrating. Let's sort it out together, step by step.",
				Expression: expression.Angry,
			},
			{
				Key:        "unknown",
				Response:   "Hmm, I didn't quite get that. Try asking me for a joke, the weather, or some music!",
				Expression: expression.Surprised,
			},
		},
	}
}
