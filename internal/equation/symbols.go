package equation

import "regexp"

// SymbolKind groups recognized symbol tokens.
type SymbolKind string

const (
	KindGreek     SymbolKind = "greek"
	KindOperator  SymbolKind = "operator"
	KindStructure SymbolKind = "structure"
)

// Symbol is one recognized token found in an equation.
type Symbol struct {
	Token string     `json:"token"`
	Kind  SymbolKind `json:"kind"`
}

var symbolToken = regexp.MustCompile(`\\[A-Za-z]+|[=+\-<>^_]`)

var vocabulary = buildVocabulary()

func buildVocabulary() map[string]SymbolKind {
	v := make(map[string]SymbolKind)
	add := func(kind SymbolKind, tokens ...string) {
		for _, t := range tokens {
			v[t] = kind
		}
	}

	add(KindGreek,
		`\alpha`, `\beta`, `\gamma`, `\delta`, `\epsilon`, `\varepsilon`, `\zeta`, `\eta`,
		`\theta`, `\vartheta`, `\iota`, `\kappa`, `\lambda`, `\mu`, `\nu`, `\xi`, `\pi`,
		`\varpi`, `\rho`, `\varrho`, `\sigma`, `\varsigma`, `\tau`, `\upsilon`, `\phi`,
		`\varphi`, `\chi`, `\psi`, `\omega`,
		`\Gamma`, `\Delta`, `\Theta`, `\Lambda`, `\Xi`, `\Pi`, `\Sigma`, `\Upsilon`,
		`\Phi`, `\Psi`, `\Omega`,
	)
	add(KindOperator,
		`\sum`, `\prod`, `\int`, `\iint`, `\oint`, `\partial`, `\nabla`, `\infty`,
		`\leq`, `\le`, `\geq`, `\ge`, `\neq`, `\ne`, `\approx`, `\equiv`, `\sim`, `\simeq`,
		`\propto`, `\pm`, `\mp`, `\times`, `\cdot`, `\div`, `\in`, `\notin`, `\subset`,
		`\subseteq`, `\cup`, `\cap`, `\forall`, `\exists`, `\to`, `\rightarrow`,
		`\leftarrow`, `\Rightarrow`, `\Leftrightarrow`, `\mapsto`,
		`\lim`, `\log`, `\ln`, `\exp`, `\sin`, `\cos`, `\tan`, `\max`, `\min`,
		`\arg`, `\det`, `\sup`, `\inf`,
		`=`, `+`, `-`, `<`, `>`,
	)
	add(KindStructure,
		`\frac`, `\dfrac`, `\sqrt`, `\left`, `\right`, `\mathbf`, `\mathrm`, `\mathcal`,
		`\mathbb`, `\boldsymbol`, `\hat`, `\bar`, `\vec`, `\tilde`, `\dot`, `\ddot`,
		`\overline`, `\underline`, `\operatorname`, `\text`, `\binom`,
		`^`, `_`,
	)
	return v
}

// Symbols returns the distinct vocabulary tokens in content, in order of
// first appearance. Unknown commands are ignored.
func Symbols(content string) []Symbol {
	out := []Symbol{}
	seen := make(map[string]bool)
	for _, tok := range symbolToken.FindAllString(content, -1) {
		kind, ok := vocabulary[tok]
		if !ok || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, Symbol{Token: tok, Kind: kind})
	}
	return out
}
