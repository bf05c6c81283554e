package model

// Stage is the position of a lead in the sales funnel.
type Stage string

const (
	StageNovo            Stage = "novo"
	StageContatoInicial  Stage = "contato_inicial"
	StageQualificado     Stage = "qualificado"
	StageVisitaAgendada  Stage = "visita_agendada"
	StageVisitaRealizada Stage = "visita_realizada"
	StageProposta        Stage = "proposta"
	StageNegociacao      Stage = "negociacao"
	StageFechadoGanho    Stage = "fechado_ganho"
	StageFechadoPerdido  Stage = "fechado_perdido"
	StageSemInteresse    Stage = "sem_interesse"
)

// Stages lists the funnel in its conventional order.
var Stages = []Stage{
	StageNovo,
	StageContatoInicial,
	StageQualificado,
	StageVisitaAgendada,
	StageVisitaRealizada,
	StageProposta,
	StageNegociacao,
	StageFechadoGanho,
	StageFechadoPerdido,
	StageSemInteresse,
}

func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index is the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Terminal() bool {
	return s == StageFechadoGanho || s == StageFechadoPerdido || s == StageSemInteresse
}
