package session

// WelcomeDocument is the buffer on first start and after "new file".
const WelcomeDocument = "# Welcome to Markdown Editor\n" +
	"\n" +
	"## Getting Started\n" +
	"\n" +
	"This is a simple **Markdown** editor with live preview. You can:\n" +
	"\n" +
	"- Write Markdown syntax\n" +
	"- See instant preview\n" +
	"- Save your work\n" +
	"- Download in different formats\n" +
	"\n" +
	"### Code Example\n" +
	"\n" +
	"```javascript\n" +
	"function helloWorld() {\n" +
	"  console.log(\"Hello, Markdown!\");\n" +
	"}\n" +
	"```\n"
