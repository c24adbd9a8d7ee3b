// Package catalog declares the column schema of every dataset.
//
// The mapping is static and total over core.AllDatasets: each dataset has
// exactly one schema, possibly with zero columns.
package catalog

import (
	"fmt"

	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

var schemas = [...]core.ColumnSchema{
	core.Contracts: core.TextColumns(
		"numero", "ano", "id_processo", "nup", "objeto",
	),
	core.Planning: core.TextColumns(
		"tipo", "numero", "ano", "id_processo", "nup", "objeto", "objeto_completo",
		"valor_total", "uasg", "orgao_responsavel", "sigla_om", "setor_responsavel",
		"coordenador_planejamento", "etapa", "pregoeiro", "item_pca", "portaria_pca",
		"data_sessao", "data_limite_entrega_tr", "nup_portaria_planejamento", "srp",
		"material_servico", "parecer_agu", "msg_irp", "data_limite_manifestacao_irp",
		"data_limite_confirmacao_irp", "num_irp", "om_participantes", "link_pncp",
		"link_portal_marinha", "custeio", "situacao",
	),
	// Minutes has no declared columns yet.
	core.Minutes: {},
	core.ElectronicWaiver: core.TextColumns(
		"tipo", "numero", "ano", "id_processo", "nup", "objeto", "uasg", "situacao",
		"material_servico", "vigencia", "criterio_julgamento", "com_disputa",
		"pesquisa_preco", "previsao_contratacao", "setor_responsavel", "cod_par",
		"prioridade_par", "cep", "endereco", "email", "telefone",
		"dias_para_recebimento", "horario_para_recebimento", "valor_total",
		"acao_interna", "fonte_recursos", "natureza_despesa", "unidade_orcamentaria",
		"programa_trabalho_resuminho", "atividade_custeio", "justificativa",
		"comunicacao_padronizada", "do_responsavel", "ao_responsavel",
	),
	core.RiskMatrix: core.TextColumns(
		"risco", "causa", "consequencia", "acao_corretiva", "acao_preventiva",
		"impacto", "probabilidade",
	),
	core.Automations: {},
}

// Schema returns the creation schema of a dataset. The returned slice is a
// copy. It panics for an undeclared dataset.
func Schema(id core.DatasetID) core.ColumnSchema {
	if !id.Valid() || int(id) >= len(schemas) {
		panic(fmt.Sprintf("catalog: no schema for dataset %d", int(id)))
	}
	src := schemas[id]
	out := make(core.ColumnSchema, len(src))
	copy(out, src)
	return out
}

// Entry pairs a dataset with its schema.
type Entry struct {
	Dataset core.DatasetID    `json:"-" yaml:"-"`
	Name    string            `json:"dataset" yaml:"dataset"`
	Title   string            `json:"title" yaml:"title"`
	Columns core.ColumnSchema `json:"columns" yaml:"columns"`
}

// All returns every dataset's schema in enumeration order.
func All() []Entry {
	ids := core.AllDatasets()
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		entries[i] = Lookup(id)
	}
	return entries
}

// Lookup returns the catalog entry of one dataset.
func Lookup(id core.DatasetID) Entry {
	return Entry{Dataset: id, Name: id.Name(), Title: id.Title(), Columns: Schema(id)}
}
