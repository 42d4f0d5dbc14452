// internal/service/groupbuy/infrastructure/rule/cel_screener.go
package rule

import (
	"github.com/google/cel-go/cel"
	pkgerrors "github.com/pkg/errors"

	"pinhub/internal/service/groupbuy/port"
)

// DefaultProofRule 是未配置时的筛查规则：凭证至少要有文字或链接之一。
const DefaultProofRule = `text != "" || url != ""`

// CelProofScreener 用一条可配置的 CEL 表达式筛查凭证，实现 port.ProofScreener。
// 表达式可见的变量：text、url、role、username，求值结果必须是 bool。
type CelProofScreener struct {
	program cel.Program
}

// NewCelProofScreener 编译规则表达式。表达式非法在启动期就报错，而不是提交时。
func NewCelProofScreener(expr string) (*CelProofScreener, error) {
	if expr == "" {
		expr = DefaultProofRule
	}

	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("url", cel.StringType),
		cel.Variable("role", cel.StringType),
		cel.Variable("username", cel.StringType),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create cel env")
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, pkgerrors.Wrapf(issues.Err(), "compile proof rule %q", expr)
	}
	if ast.OutputType() != cel.BoolType {
		return nil, pkgerrors.Errorf("proof rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build cel program")
	}
	return &CelProofScreener{program: program}, nil
}

// Screen 对一条凭证求值，true 表示放行。
func (s *CelProofScreener) Screen(fact port.ProofFact) (bool, error) {
	out, _, err := s.program.Eval(map[string]interface{}{
		"text":     fact.Text,
		"url":      fact.URL,
		"role":     fact.Role,
		"username": fact.Username,
	})
	if err != nil {
		return false, pkgerrors.Wrap(err, "evaluate proof rule")
	}
	pass, ok := out.Value().(bool)
	if !ok {
		return false, pkgerrors.New("proof rule returned non-bool")
	}
	return pass, nil
}
