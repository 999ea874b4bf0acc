package categorization

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// DefaultCategory is assigned when nothing else claims a transaction.
const DefaultCategory = "Outros"

// Categories is the fixed vocabulary committed transactions use.
var Categories = []string{
	"Essenciais",
	"Alimentação",
	"Mercado",
	"Moradia",
	"Conta de Luz",
	"Água",
	"Internet",
	"Transporte",
	"Saúde",
	"Educação",
	"Lazer",
	"Assinaturas",
	"Filha",
	"Dívidas",
	"Investimento",
	"Renda",
	"Transferência",
	"Impostos",
	"Outros",
}

type keywordEntry struct {
	Keyword  string
	Category string
}

// keywordTable maps description keywords to categories. Order matters:
// when a description hits several keywords, the earliest entry wins.
var keywordTable = []keywordEntry{
	// Utilities before generic merchant words.
	{"cpfl", "Conta de Luz"},
	{"enel", "Conta de Luz"},
	{"energia", "Conta de Luz"},
	{"sanasa", "Água"},
	{"sabesp", "Água"},
	{"saneamento", "Água"},
	{"desktop", "Internet"},
	{"vivo fibra", "Internet"},
	{"claro", "Internet"},
	{"tim ", "Internet"},
	{"net servicos", "Internet"},

	{"aluguel", "Moradia"},
	{"condominio", "Moradia"},
	{"condomínio", "Moradia"},
	{"imobiliaria", "Moradia"},
	{"iptu", "Impostos"},
	{"ipva", "Impostos"},
	{"darf", "Impostos"},
	{"receita federal", "Impostos"},

	{"uber", "Transporte"},
	{"99app", "Transporte"},
	{"99 tecnologia", "Transporte"},
	{"posto", "Transporte"},
	{"combustivel", "Transporte"},
	{"estacionamento", "Transporte"},
	{"pedagio", "Transporte"},
	{"sem parar", "Transporte"},

	{"ifood", "Alimentação"},
	{"restaurante", "Alimentação"},
	{"lanchonete", "Alimentação"},
	{"padaria", "Alimentação"},
	{"pizzaria", "Alimentação"},
	{"hamburgueria", "Alimentação"},
	{"mcdonald", "Alimentação"},
	{"burger king", "Alimentação"},

	{"mercado", "Mercado"},
	{"supermercado", "Mercado"},
	{"atacadao", "Mercado"},
	{"atacadão", "Mercado"},
	{"carrefour", "Mercado"},
	{"assai", "Mercado"},
	{"hortifruti", "Mercado"},
	{"açougue", "Mercado"},
	{"acougue", "Mercado"},

	{"farmacia", "Saúde"},
	{"farmácia", "Saúde"},
	{"drogasil", "Saúde"},
	{"drogaria", "Saúde"},
	{"unimed", "Saúde"},
	{"laboratorio", "Saúde"},
	{"hospital", "Saúde"},
	{"clinica", "Saúde"},
	{"dentista", "Saúde"},

	{"escola", "Educação"},
	{"faculdade", "Educação"},
	{"curso", "Educação"},
	{"udemy", "Educação"},
	{"alura", "Educação"},
	{"livraria", "Educação"},

	{"netflix", "Assinaturas"},
	{"spotify", "Assinaturas"},
	{"amazon prime", "Assinaturas"},
	{"disney", "Assinaturas"},
	{"hbo", "Assinaturas"},
	{"youtube premium", "Assinaturas"},
	{"globoplay", "Assinaturas"},

	{"cinema", "Lazer"},
	{"cinemark", "Lazer"},
	{"ingresso", "Lazer"},
	{"steam", "Lazer"},
	{"playstation", "Lazer"},
	{"bar ", "Lazer"},
	{"viagem", "Lazer"},
	{"hotel", "Lazer"},

	{"fralda", "Filha"},
	{"bercario", "Filha"},
	{"berçário", "Filha"},
	{"pediatra", "Filha"},
	{"brinquedo", "Filha"},

	{"emprestimo", "Dívidas"},
	{"empréstimo", "Dívidas"},
	{"financiamento", "Dívidas"},
	{"fatura", "Dívidas"},
	{"juros", "Dívidas"},

	{"tesouro direto", "Investimento"},
	{"cdb", "Investimento"},
	{"aplicacao", "Investimento"},
	{"aplicação", "Investimento"},
	{"corretora", "Investimento"},
	{"rdb", "Investimento"},

	{"salario", "Renda"},
	{"salário", "Renda"},
	{"provento", "Renda"},
	{"rendimento", "Renda"},
	{"remuneracao", "Renda"},
	{"remuneração", "Renda"},

	{"transferencia", "Transferência"},
	{"transferência", "Transferência"},
	{"ted recebida", "Transferência"},
	{"ted enviada", "Transferência"},
	{"entre contas", "Transferência"},
}

// keywordMatcher runs all keywords against a description in one pass.
var keywordMatcher = ahocorasick.NewStringMatcher(keywords())

func keywords() []string {
	out := make([]string, len(keywordTable))
	for i, entry := range keywordTable {
		out[i] = entry.Keyword
	}
	return out
}

// CategorizeStatic resolves a description against the built-in keyword
// table. Returns "" when no keyword hits.
func CategorizeStatic(description string) string {
	hits := keywordMatcher.Match([]byte(strings.ToLower(description)))
	if len(hits) == 0 {
		return ""
	}
	best := hits[0]
	for _, hit := range hits[1:] {
		if hit < best {
			best = hit
		}
	}
	return keywordTable[best].Category
}
