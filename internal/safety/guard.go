// Package safety 在命令执行前拦截危险 shell 命令与偷懒代码。
// Package safety intercepts dangerous shell commands and lazy code before
// execution. Every code path that can reach shell execution must pass through
// ValidateCommand.
package safety

import (
	"fmt"
	"strings"
)

// prohibitedPatterns 已知危险的命令子串；命中即拒绝。
// prohibitedPatterns are known-bad command substrings; any match blocks.
var prohibitedPatterns = []string{
	"rm -rf /",
	"rm -rf ~",
	":(){ :|:& };:", // fork bomb
	"sudo",          // no privilege escalation by default
	"mkfs",
	"> /dev/sda",
}

// lazyIndicators 偷懒代码占位符。
// lazyIndicators mark placeholder code the agent must not hand back.
var lazyIndicators = []string{
	"// ... rest of code",
	"# ... rest of code",
	"TODO: finish this",
	"implementation pending",
}

// ValidateCommand 检查 shell 命令安全性；不安全时返回拒绝原因，安全返回空串。
// ValidateCommand checks a shell command; it returns a block reason when
// unsafe, or "" when the command may run.
func ValidateCommand(command string) string {
	for _, pattern := range prohibitedPatterns {
		if strings.Contains(command, pattern) {
			return fmt.Sprintf("⛔ SAFETY BLOCK: Command contains prohibited pattern %q", pattern)
		}
	}
	return ""
}

// ValidateCode 检查代码中的占位符；发现时返回警告，否则返回空串。
// ValidateCode checks code for lazy placeholders; it returns a warning when
// found, or "".
func ValidateCode(code string) string {
	for _, indicator := range lazyIndicators {
		if strings.Contains(code, indicator) {
			return fmt.Sprintf("⚠️ QUALITY CHECK: found lazy placeholder %q. Write the full code.", indicator)
		}
	}
	return ""
}
