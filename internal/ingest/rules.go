package ingest

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/recordkeeper/internal/registry"
	"github.com/leapstack-labs/recordkeeper/pkg/core"
)

// Canonical values written by the import rules.
const (
	TipoDispensaEletronica = "Dispensa Eletrônica"
	TipoDesconhecido       = "Tipo Desconhecido"
	SituacaoPlanejamento   = "Planejamento"
)

// commonLabels applies to every dataset; labels for columns a schema does
// not have are ignored.
var commonLabels = map[string]string{
	"ID Processo": "id_processo",
	"NUP":         "nup",
	"Objeto":      "objeto",
	"UASG":        "uasg",
	"Número":      "numero",
	"Ano":         "ano",
	"Tipo":        "tipo",
	"Situação":    "situacao",
}

// label is a header people use for a column.
type label struct {
	text   string
	column string
}

type datasetRules struct {
	labels   []label
	required []string
	// values maps a column to canonical values keyed by normalized input.
	values map[string]map[string]string
	finish func(t *core.Table)
}

var yesNo = map[string]string{
	"s":   "Sim",
	"sim": "Sim",
	"n":   "Não",
	"nao": "Não",
}

var rules = map[core.DatasetID]datasetRules{
	core.ElectronicWaiver: {
		labels: []label{
			{"Material (M) ou Serviço (S)", "material_servico"},
			{"Objeto Resumido", "objeto"},
			{"Vigência", "vigencia"},
			{"Critério de Julgamento (Menor Preço ou Maior Desconto)", "criterio_julgamento"},
			{"Com disputa? Sim (S) ou Não (N)", "com_disputa"},
			{"Pesquisa Concomitante? Sim (S) ou Não (N)", "pesquisa_preco"},
			{"Previsão de Contratação", "previsao_contratacao"},
			{"Setor Responsável", "setor_responsavel"},
			{"Código PAR", "cod_par"},
			{"Prioridade PAR (Necessário, Urgente ou Desejável)", "prioridade_par"},
			{"Endereço", "endereco"},
			{"Dias para Recebimento", "dias_para_recebimento"},
			{"Horário para Recebimento", "horario_para_recebimento"},
			{"Ação Interna", "acao_interna"},
			{"Fonte de Recursos", "fonte_recursos"},
			{"Natureza da Despesa", "natureza_despesa"},
			{"Unidade Orçamentária", "unidade_orcamentaria"},
			{"PTRES", "programa_trabalho_resuminho"},
			{"Atividade de Custeio", "atividade_custeio"},
			{"Comunicação Padronizada (CP), Ex: 60-25", "comunicacao_padronizada"},
			{"Campo Do(a) da CP", "do_responsavel"},
			{"Campo Ao da CP", "ao_responsavel"},
		},
		required: []string{"id_processo", "nup", "objeto", "uasg"},
		values: map[string]map[string]string{
			"material_servico": {
				"m":        "Material",
				"material": "Material",
				"s":        "Serviço",
				"servico":  "Serviço",
			},
			"com_disputa":       yesNo,
			"pesquisa_preco":    yesNo,
			"atividade_custeio": yesNo,
		},
		finish: splitProcessID,
	},
	core.Planning: {
		labels: []label{
			{"Coordenador", "coordenador_planejamento"},
			{"Objeto Resumido", "objeto"},
			{"Link Portal", "link_portal_marinha"},
		},
	},
	core.RiskMatrix: {
		labels: []label{
			{"Consequências", "consequencia"},
		},
	},
}

func rulesFor(id core.DatasetID) datasetRules {
	return rules[id]
}

func (r datasetRules) apply(t *core.Table) {
	for i := range t.Columns {
		canon, ok := r.values[t.Columns[i].Name]
		if !ok {
			continue
		}
		for row, v := range t.Columns[i].Values {
			if !v.Valid {
				continue
			}
			if c, ok := canon[registry.Normalize(v.Value)]; ok {
				t.Columns[i].Values[row] = core.Some(c)
			}
		}
	}
	if r.finish != nil {
		r.finish(t)
	}
}

var processIDPattern = regexp.MustCompile(`^(\D+)(\d+)/(\d+)`)

// splitProcessID derives tipo, numero and ano from id_processo values such as
// "DE 15/2024", and defaults an empty situacao to Planejamento.
func splitProcessID(t *core.Table) {
	idx := func(name string) int {
		for i, c := range t.Columns {
			if c.Name == name {
				return i
			}
		}
		return -1
	}
	idCol, tipoCol, numCol, anoCol, sitCol := idx("id_processo"), idx("tipo"), idx("numero"), idx("ano"), idx("situacao")

	for row := 0; row < t.NumRows(); row++ {
		if sitCol >= 0 {
			if v := t.Columns[sitCol].Values[row]; !v.Valid || strings.TrimSpace(v.Value) == "" {
				t.Columns[sitCol].Values[row] = core.Some(SituacaoPlanejamento)
			}
		}
		if idCol < 0 {
			continue
		}
		var m []string
		if v := t.Columns[idCol].Values[row]; v.Valid {
			m = processIDPattern.FindStringSubmatch(strings.TrimSpace(v.Value))
		}
		tipo := TipoDesconhecido
		numero, ano := core.Null(), core.Null()
		if m != nil {
			if strings.EqualFold(strings.TrimSpace(m[1]), "DE") {
				tipo = TipoDispensaEletronica
			}
			numero, ano = core.Some(m[2]), core.Some(m[3])
		}
		if tipoCol >= 0 {
			t.Columns[tipoCol].Values[row] = core.Some(tipo)
		}
		if numCol >= 0 {
			t.Columns[numCol].Values[row] = numero
		}
		if anoCol >= 0 {
			t.Columns[anoCol].Values[row] = ano
		}
	}
}
