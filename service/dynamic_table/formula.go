/*
 * @module service/dynamic_table/formula
 * @description 计算字段求值器：对 literal | fieldRef | '+' 的极简文法做词法扫描后拼接求值，
 *              不执行任何动态代码
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 公式字符串 -> 词法扫描 -> 逐段取值 -> 字符串拼接
 * @rules '+'仅表示字符串拼接，无运算优先级和数值运算；字段引用取载荷中的当前值，
 *        未能解析的引用按其字面文本处理；求值失败由调用方置空该字段而非中断写入
 * @dependencies github.com/spf13/cast
 * @refs service/dynamic_table/record_service.go
 */

package dynamic_table

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// FormulaEvaluator 计算字段求值器
type FormulaEvaluator struct{}

// NewFormulaEvaluator 创建计算字段求值器实例
func NewFormulaEvaluator() *FormulaEvaluator {
	return &FormulaEvaluator{}
}

type formulaToken struct {
	kind string // "literal", "field", "plus"
	text string
}

// Evaluate 对公式求值，payload为已通过校验的记录载荷
func (e *FormulaEvaluator) Evaluate(formula string, payload map[string]interface{}) (string, error) {
	tokens, err := tokenizeFormula(formula)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", nil
	}

	var builder strings.Builder
	expectTerm := true
	for _, tok := range tokens {
		switch tok.kind {
		case "plus":
			if expectTerm {
				return "", fmt.Errorf("公式语法错误: '+' 缺少左操作数")
			}
			expectTerm = true
		case "literal":
			if !expectTerm {
				return "", fmt.Errorf("公式语法错误: 相邻项之间缺少 '+'")
			}
			builder.WriteString(tok.text)
			expectTerm = false
		case "field":
			if !expectTerm {
				return "", fmt.Errorf("公式语法错误: 相邻项之间缺少 '+'")
			}
			if value, ok := payload[tok.text]; ok && value != nil {
				builder.WriteString(cast.ToString(value))
			} else {
				// 未解析的引用保留字面文本
				builder.WriteString(tok.text)
			}
			expectTerm = false
		}
	}
	if expectTerm {
		return "", fmt.Errorf("公式语法错误: '+' 缺少右操作数")
	}

	return builder.String(), nil
}

// tokenizeFormula 词法扫描，文法: expr := term ('+' term)* ; term := 字符串字面量 | 字段引用
func tokenizeFormula(formula string) ([]formulaToken, error) {
	var tokens []formulaToken
	runes := []rune(formula)

	for i := 0; i < len(runes); {
		c := runes[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '+':
			tokens = append(tokens, formulaToken{kind: "plus"})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("公式语法错误: 字符串字面量未闭合")
			}
			tokens = append(tokens, formulaToken{kind: "literal", text: string(runes[i+1 : j])})
			i = j + 1
		case isIdentChar(c):
			j := i
			for j < len(runes) && isIdentChar(runes[j]) {
				j++
			}
			tokens = append(tokens, formulaToken{kind: "field", text: string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("公式语法错误: 非法字符 %q", c)
		}
	}

	return tokens, nil
}

func isIdentChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
