package router

import "github.com/asklly/asklly/agents"

// Example is one labeled routing sentence. The banks are embedded once at
// construction and every query is scored against them.
type Example struct {
	Agent agents.AgentType
	Lang  string
	Text  string
}

// defaultExamples is the built-in trilingual routing bank.
func defaultExamples() []Example {
	return []Example{
		{agents.AgentTypeCasual, "en", "hello, how are you doing today"},
		{agents.AgentTypeCasual, "en", "tell me a joke about computers"},
		{agents.AgentTypeCasual, "en", "what do you think about rainy days"},
		{agents.AgentTypeCasual, "fr", "bonjour, comment vas-tu aujourd'hui"},
		{agents.AgentTypeCasual, "fr", "raconte-moi une blague"},
		{agents.AgentTypeCasual, "zh", "你好，今天过得怎么样"},
		{agents.AgentTypeCasual, "zh", "给我讲个笑话"},

		{agents.AgentTypeCoder, "en", "write a python script that renames every file in a folder"},
		{agents.AgentTypeCoder, "en", "fix the bug in this function and explain the change"},
		{agents.AgentTypeCoder, "en", "show me how to implement a binary search in go"},
		{agents.AgentTypeCoder, "fr", "écris un script python qui trie une liste"},
		{agents.AgentTypeCoder, "fr", "corrige ce code et explique l'erreur"},
		{agents.AgentTypeCoder, "zh", "写一个脚本批量重命名文件"},
		{agents.AgentTypeCoder, "zh", "帮我修复这段代码的错误"},

		{agents.AgentTypeFile, "en", "find the file named report.pdf on my disk"},
		{agents.AgentTypeFile, "en", "where did I save my tax documents"},
		{agents.AgentTypeFile, "en", "list the files in my project folder"},
		{agents.AgentTypeFile, "fr", "trouve le fichier rapport.pdf sur mon disque"},
		{agents.AgentTypeFile, "fr", "où est mon dossier de photos"},
		{agents.AgentTypeFile, "zh", "帮我找到名为报告的文件"},
		{agents.AgentTypeFile, "zh", "我的文档保存在哪里"},

		{agents.AgentTypePlanner, "en", "plan a trip to japan with a daily itinerary"},
		{agents.AgentTypePlanner, "en", "break this project into steps and organize the work"},
		{agents.AgentTypePlanner, "fr", "organise ce projet en plusieurs étapes"},
		{agents.AgentTypePlanner, "zh", "帮我制定一个学习计划"},

		{agents.AgentTypeBrowser, "en", "search the web for the latest ai news"},
		{agents.AgentTypeBrowser, "en", "what is the current weather in osaka"},
		{agents.AgentTypeBrowser, "en", "look up the stock price of nvidia online"},
		{agents.AgentTypeBrowser, "fr", "cherche sur internet les actualités du jour"},
		{agents.AgentTypeBrowser, "zh", "上网搜索今天的新闻"},
		{agents.AgentTypeBrowser, "zh", "查一下大阪现在的天气"},

		{agents.AgentTypeRetrieval, "en", "answer from the knowledge base how refunds work"},
		{agents.AgentTypeRetrieval, "en", "what do our support docs say about password resets"},
		{agents.AgentTypeRetrieval, "fr", "que dit la documentation sur les remboursements"},
		{agents.AgentTypeRetrieval, "zh", "根据知识库回答退款政策"},
	}
}

// routeKeywords is the deterministic fallback used when embeddings are
// unavailable or inconclusive. Chinese entries match as substrings since
// the queries carry no word boundaries.
var routeKeywords = map[agents.AgentType][]string{
	agents.AgentTypeCoder: {
		"code", "script", "function", "bug", "compile", "program",
		"implémente", "programme",
		"代码", "脚本", "编程",
	},
	agents.AgentTypeFile: {
		"file", "folder", "directory", "saved",
		"fichier", "dossier",
		"文件", "文件夹",
	},
	agents.AgentTypePlanner: {
		"plan", "organize", "steps", "itinerary", "schedule",
		"étapes", "organise",
		"计划", "安排", "步骤",
	},
	agents.AgentTypeBrowser: {
		"search", "web", "online", "internet", "browse", "news", "weather",
		"cherche", "actualités", "météo",
		"搜索", "上网", "新闻", "天气",
	},
	agents.AgentTypeRetrieval: {
		"knowledge base", "docs", "documentation", "support article",
		"base de connaissances",
		"知识库", "文档",
	},
}
