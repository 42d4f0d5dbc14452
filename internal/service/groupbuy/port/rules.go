// internal/service/groupbuy/port/rules.go
package port

// ProofFact 是凭证筛查规则的输入。
type ProofFact struct {
	Text     string
	URL      string
	Role     string
	Username string
}

// ProofScreener 对提交的凭证执行可配置的自动筛查规则。
// 返回 false 表示凭证被规则拒绝；引擎故障时调用方放行并记日志。
type ProofScreener interface {
	Screen(fact ProofFact) (bool, error)
}
