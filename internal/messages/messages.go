// Package messages holds the exact user-facing strings the ServeRest backend
// returns. Assertions compare against these verbatim, so they stay in the
// backend's language.
package messages

// Messages asserted by the scenario suite.
const (
	SuccessRegister       = "Cadastro realizado com sucesso"
	SuccessLogin          = "Login realizado com sucesso"
	ErrorDuplicateProduct = "Já existe produto com esse nome"
	ErrorForbidden        = "Rota exclusiva para administradores"
	ErrorUnauthorized     = "Token de acesso ausente, inválido, expirado ou usuário do token não existe mais"
)

// Messages the twin returns for the rest of the contract.
const (
	ErrorDuplicateEmail     = "Este email já está sendo usado"
	ErrorInvalidCredentials = "Email e/ou senha inválidos"
	ErrorUserNotFound       = "Usuário não encontrado"
	ErrorProductNotFound    = "Produto não encontrado"
	ErrorCartNotFound       = "Carrinho não encontrado"
	ErrorOneCartOnly        = "Não é permitido ter mais de 1 carrinho"
	ErrorDuplicateCartItem  = "Não é permitido possuir produto duplicado"
	ErrorInsufficientStock  = "Produto não possui quantidade suficiente"
	ErrorProductInCart      = "Não é permitido excluir produto que faz parte de carrinho"
	ErrorUserHasCart        = "Não é permitido excluir usuário com carrinho cadastrado"
	SuccessDelete           = "Registro excluído com sucesso"
	NothingDeleted          = "Nenhum registro excluído"
	SuccessUpdate           = "Registro alterado com sucesso"
	SuccessCancelPurchase   = "Registro excluído com sucesso. Estoque dos produtos reabastecido"
	NoCartForUser           = "Não foi encontrado carrinho para esse usuário"
)

// Field validation messages, keyed by the offending field.
const (
	FieldRequired     = "%s é obrigatório"
	FieldNotBlank     = "%s não pode ficar em branco"
	FieldInvalidMail  = "email deve ser um email válido"
	FieldPositive     = "%s deve ser um número positivo"
	FieldNonNegative  = "%s deve ser maior ou igual a 0"
	FieldBoolString   = "administrador deve ser 'true' ou 'false'"
	FieldNonEmptyList = "produtos deve ser um array não vazio"
	FieldString       = "%s deve ser uma string"
	FieldNumber       = "%s deve ser um número"
	FieldInteger      = "%s deve ser um inteiro"
)
