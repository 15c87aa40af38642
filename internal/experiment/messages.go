package experiment

import "fmt"

// Participant-facing prompts. The studies were run in Portuguese.

const ihttWelcome = `Bem vindo ao experimento. Instrucoes: O programa pedira que voce mantenha o dedo indicador
de uma das maos repousado sobre a tecla %[1]s sem aperta-la. Mantenha seu olhar sempre dirigido para a regiao
central da tela, indicada por uma cruz branca. Nao desvie o olhar dessa posicao durante a apresentacao dos estimulos.
Quando notar um circulo branco, pressione a tecla %[1]s uma vez, e aguarde o aparecimento dos proximos
estimulos ou das proximas instrucoes.`

const ihttBlock = `Mantenha o dedo indicador da sua mao %[1]s repousando sobre a tecla %[2]s sem aperta-la.
So aperte ela uma vez, o mais rapido possivel, sempre que notar um circulo branco. Pressione a tecla %[2]s uma vez agora
para comecar a apresentacao dos proximos estimulos.`

const dmtsWelcome = `Você vai observar a breve apresentação de um círculo no centro da tela.
Depois de um tempo, dois círculos vão aparecer na tela. Sua tarefa é
escolher o círculo igual ao apresentado anteriormente: tecla %s para o da esquerda,
tecla %s para o da direita.
Pressione qualquer tecla para continuar.`

const dmtsRest = `Caso queira, você pode descansar um pouco.
Pressione qualquer tecla quando estiver preparado para recomeçar.`

const dmtsGoodbye = `Obrigado pela sua participação!
Pressione qualquer tecla para sair.`

func ihttWelcomeText(key string) string {
	return fmt.Sprintf(ihttWelcome, upper(key))
}

func ihttBlockText(leftHand bool, key string) string {
	hand := "DIREITA"
	if leftHand {
		hand = "ESQUERDA"
	}
	return fmt.Sprintf(ihttBlock, hand, upper(key))
}

func dmtsWelcomeText(leftKey, rightKey string) string {
	return fmt.Sprintf(dmtsWelcome, upper(leftKey), upper(rightKey))
}

func upper(key string) string {
	if len(key) == 1 && key[0] >= 'a' && key[0] <= 'z' {
		return string(key[0] - 'a' + 'A')
	}
	return key
}
